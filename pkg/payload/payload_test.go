package payload

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture keys shared with the lock firmware test QR codes.
const (
	accessKeyHex    = "85 f1 e2 04 ba 63 fe 41 a0 f0 da 37 74 3e 8d 1c 6a f5 33 fc"
	syncKeyHex      = "bf 42 9e 35 29 c5 f1 4e bb 81 8c 15 a3 cd 98 04 f6 1d 4b 98"
	masterKeyHex    = "ed 5c 53 fe 28 c8 64 47 a0 33 dc a2 16 d7 51 6b 58 95 6c 34"
	configKeyHex    = "e7 e5 00 11 c6 ff eb f0 ee a6 f9 47 e6 c5 43 bb c9 7e 42 db"
	oldMasterKeyHex = "1a 50 63 d3 2c ec 63 93 40 f5 fb 9f c6 e1 7f f6 f3 d5 bf 70"
	newMasterKeyHex = "cc 93 ec 5e 31 98 c4 22 0a 39 44 a9 01 36 2f 33 12 10 a3 5f"

	fixtureUserID = 2305947582
)

func mustKey(t *testing.T, s string) keys.Material {
	t.Helper()
	m, err := keys.FromHex(s)
	require.NoError(t, err)
	return m
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func at(hour, min int) time.Time {
	return time.Date(2025, 7, 17, hour, min, 0, 0, time.UTC)
}

func fixtureKeyring(t *testing.T) *keys.Keyring {
	t.Helper()
	kr := keys.NewKeyring()
	require.NoError(t, kr.Set(keys.RoleMaster, mustKey(t, masterKeyHex)))
	require.NoError(t, kr.Set(keys.RoleConfig, mustKey(t, configKeyHex)))
	require.NoError(t, kr.Set(keys.RoleSync, mustKey(t, syncKeyHex)))
	require.NoError(t, kr.Set(keys.RoleAccess, mustKey(t, accessKeyHex)))
	return kr
}

func TestKnownAnswers(t *testing.T) {
	access := Signer{Role: keys.RoleAccess, Key: mustKey(t, accessKeyHex)}
	syncSigner := Signer{Role: keys.RoleSync, Key: mustKey(t, syncKeyHex)}
	master := Signer{Role: keys.RoleMaster, Key: mustKey(t, masterKeyHex)}
	oldMaster := Signer{Role: keys.RoleMaster, Key: mustKey(t, oldMasterKeyHex)}
	config := Signer{Role: keys.RoleConfig, Key: mustKey(t, configKeyHex)}

	tests := []struct {
		name  string
		build func() (*Payload, error)
		want  string
	}{
		{
			name:  "check in",
			build: func() (*Payload, error) { return CheckIn(fixtureUserID, at(15, 14), access) },
			want:  "018971f7be000000006879133884eabd22f55f5e7ccd832b58a7b1a13cdc59b137",
		},
		{
			name:  "check out",
			build: func() (*Payload, error) { return CheckOut(fixtureUserID, at(15, 18), access) },
			want:  "028971f7be0000000068791428b32a72c3c4a6350403c36c1b2adbe543856d2251",
		},
		{
			name:  "bi access",
			build: func() (*Payload, error) { return BiAccess(fixtureUserID, at(15, 14), access) },
			want:  "038971f7be0000000068791338aae4ebaa898f5847543dc32782f78dd2ba303347",
		},
		{
			name:  "set time",
			build: func() (*Payload, error) { return SetTime(at(14, 29), syncSigner) },
			want:  "1000000000687908acc3fca2fd2ae9d8da927425fd9b547ad7989681bb",
		},
		{
			name:  "set master key",
			build: func() (*Payload, error) { return SetMasterKey(mustKey(t, newMasterKeyHex), oldMaster) },
			want:  "24cc93ec5e3198c4220a3944a901362f331210a35f79b6ea10ff8bb81882dff075b82ee8d95da325a5",
		},
		{
			name:  "set config key",
			build: func() (*Payload, error) { return SetConfigKey(mustKey(t, configKeyHex), master) },
			want:  "25e7e50011c6ffebf0eea6f947e6c543bbc97e42db11b008a9f5a5fd91ea980cb181757a2561ab0cc1",
		},
		{
			name:  "set sync key",
			build: func() (*Payload, error) { return SetSyncKey(mustKey(t, syncKeyHex), config) },
			want:  "26bf429e3529c5f14ebb818c15a3cd9804f61d4b989971f45d8d3472d40d4397ad43391114ba3fccb8",
		},
		{
			name:  "set access key",
			build: func() (*Payload, error) { return SetAccessKey(mustKey(t, accessKeyHex), config) },
			want:  "2785f1e204ba63fe41a0f0da37743e8d1c6af533fc9fa0c0f19aa8d43176a10897529203dcf7bac1b8",
		},
		{
			name:  "blink n times",
			build: func() (*Payload, error) { return BlinkNTimes(4) },
			want:  "3800000004",
		},
		{
			name:  "blink if sync",
			build: func() (*Payload, error) { return BlinkIfSync(at(15, 3)) },
			want:  "3900000000687910a4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(p.Bytes()))
		})
	}
}

func TestCheckInLayout(t *testing.T) {
	key := mustKey(t, accessKeyHex)
	p, err := CheckIn(fixtureUserID, at(15, 14), Signer{Role: keys.RoleAccess, Key: key})
	require.NoError(t, err)

	assert.Equal(t, 33, p.Len())
	assert.Equal(t, byte(0x01), p.Header())
	assert.Equal(t, mustHex(t, "8971f7be0000000068791338"), p.Body())
	assert.True(t, p.Signed())

	tag := mac.Sign(p.Message(), key)
	assert.Equal(t, tag[:], p.Tag())
	assert.Equal(t, wire.MessageTypeAccess, p.MessageType())
	assert.Equal(t, wire.OpCheckIn, p.Operation())
}

func TestDebugPayloadsHaveNoTag(t *testing.T) {
	blink, err := BlinkNTimes(4)
	require.NoError(t, err)
	assert.Equal(t, 5, blink.Len())
	assert.False(t, blink.Signed())
	assert.Nil(t, blink.Tag())

	text, err := Debug(wire.OpDebugBlink, wire.HexText("ff"))
	require.NoError(t, err)
	assert.Equal(t, 1+wire.DebugTextSize, text.Len())
}

func TestSetConfigKeySignedWithMaster(t *testing.T) {
	master := mustKey(t, masterKeyHex)
	newConfig := mustKey(t, configKeyHex)

	p, err := SetConfigKey(newConfig, Signer{Role: keys.RoleMaster, Key: master})
	require.NoError(t, err)

	assert.Equal(t, newConfig.Bytes(), p.Body())
	assert.NoError(t, p.Verify(master))
	assert.ErrorIs(t, p.Verify(newConfig), mac.ErrAuthentication)
}

func TestRoleMismatch(t *testing.T) {
	key := keys.MustGenerate()
	newKey := keys.MustGenerate()
	now := at(12, 0)

	tests := []struct {
		name  string
		build func(Signer) (*Payload, error)
		role  keys.Role
	}{
		{"check in", func(s Signer) (*Payload, error) { return CheckIn(1, now, s) }, keys.RoleAccess},
		{"check out", func(s Signer) (*Payload, error) { return CheckOut(1, now, s) }, keys.RoleAccess},
		{"bi access", func(s Signer) (*Payload, error) { return BiAccess(1, now, s) }, keys.RoleAccess},
		{"set time", func(s Signer) (*Payload, error) { return SetTime(now, s) }, keys.RoleSync},
		{"set master key", func(s Signer) (*Payload, error) { return SetMasterKey(newKey, s) }, keys.RoleMaster},
		{"set config key", func(s Signer) (*Payload, error) { return SetConfigKey(newKey, s) }, keys.RoleMaster},
		{"set sync key", func(s Signer) (*Payload, error) { return SetSyncKey(newKey, s) }, keys.RoleConfig},
		{"set access key", func(s Signer) (*Payload, error) { return SetAccessKey(newKey, s) }, keys.RoleConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, role := range append([]keys.Role{keys.RoleNone}, keys.Roles...) {
				_, err := tt.build(Signer{Role: role, Key: key})
				if role == tt.role {
					assert.NoError(t, err, role.String())
				} else {
					assert.ErrorIs(t, err, ErrRoleMismatch, role.String())
				}
			}
		})
	}
}

func TestRotationCannotSelfSign(t *testing.T) {
	key := keys.MustGenerate()
	_, err := SetConfigKey(key, Signer{Role: keys.RoleMaster, Key: key})
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestUnsignedRejectsSigner(t *testing.T) {
	s := &Signer{Role: keys.RoleConfig, Key: keys.MustGenerate()}
	_, err := Assemble(wire.OpDebugBlink, wire.Body{Data: wire.Integer(1)}, s)
	assert.ErrorIs(t, err, ErrRoleMismatch)

	_, err = Assemble(wire.OpCheckIn, wire.Body{UserID: 1, Time: at(1, 0)}, nil)
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestRequiredRole(t *testing.T) {
	want := map[wire.Operation]keys.Role{
		wire.OpCheckIn:      keys.RoleAccess,
		wire.OpCheckOut:     keys.RoleAccess,
		wire.OpBiAccess:     keys.RoleAccess,
		wire.OpNone:         keys.RoleSync,
		wire.OpSetMasterKey: keys.RoleMaster,
		wire.OpSetConfigKey: keys.RoleMaster,
		wire.OpSetSyncKey:   keys.RoleConfig,
		wire.OpSetAccessKey: keys.RoleConfig,
		wire.OpDebugBlink:   keys.RoleNone,
		wire.OpDebugSync:    keys.RoleNone,
	}
	for op, role := range want {
		assert.Equal(t, role, RequiredRole(op), op.String())
	}
}

func TestBuildMatchesConstructors(t *testing.T) {
	kr := fixtureKeyring(t)
	newKey := keys.MustGenerate()

	for _, op := range wire.Operations {
		t.Run(op.Name(), func(t *testing.T) {
			req := Request{
				Operation:  op,
				UserID:     fixtureUserID,
				Time:       at(9, 30),
				NewKey:     &newKey,
				BlinkCount: 3,
			}

			var signer *Signer
			if role := RequiredRole(op); role != keys.RoleNone {
				key, err := kr.Key(role)
				require.NoError(t, err)
				signer = &Signer{Role: role, Key: key}
			}

			p, err := Build(req, signer)
			require.NoError(t, err)

			d, err := Open(p.Bytes(), kr)
			require.NoError(t, err)
			assert.Equal(t, op, d.Operation())

			again, err := Build(d.Request(), signer)
			require.NoError(t, err)
			assert.Equal(t, p.Bytes(), again.Bytes())
		})
	}
}

func TestBuildZeroKeyRotation(t *testing.T) {
	kr := fixtureKeyring(t)
	config := Signer{Role: keys.RoleConfig, Key: mustKey(t, configKeyHex)}
	zero := mustKey(t, "00")
	require.True(t, zero.IsZero())

	p, err := Build(Request{Operation: wire.OpSetSyncKey, NewKey: &zero}, &config)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, keys.Size), p.Body())

	d, err := Open(p.Bytes(), kr)
	require.NoError(t, err)
	got, ok := d.NewKey()
	assert.True(t, ok)
	assert.True(t, got.IsZero())

	req := d.Request()
	require.NotNil(t, req.NewKey)
	assert.True(t, req.NewKey.IsZero())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(Request{Operation: wire.Operation(12)}, nil)
	assert.ErrorIs(t, err, wire.ErrUnsupportedType)

	signer := &Signer{Role: keys.RoleConfig, Key: keys.MustGenerate()}
	_, err = Build(Request{Operation: wire.OpSetSyncKey}, signer)
	assert.ErrorIs(t, err, wire.ErrUnsupportedType)

	newKey := keys.MustGenerate()
	_, err = Build(Request{Operation: wire.OpSetSyncKey, NewKey: &newKey}, nil)
	assert.ErrorIs(t, err, ErrRoleMismatch)

	accessSigner := &Signer{Role: keys.RoleAccess, Key: keys.MustGenerate()}
	_, err = Build(Request{Operation: wire.OpCheckIn, UserID: 1}, accessSigner)
	assert.ErrorIs(t, err, wire.ErrUnsupportedType, "missing generated_at")
}

func TestPayloadAccessorsReturnCopies(t *testing.T) {
	p, err := BlinkNTimes(1)
	require.NoError(t, err)

	b := p.Bytes()
	b[0] = 0xff
	assert.Equal(t, byte(0x38), p.Header())

	body := p.Body()
	body[3] = 9
	assert.Equal(t, []byte{0, 0, 0, 1}, p.Body())
}

func TestPayloadString(t *testing.T) {
	p, err := BlinkNTimes(4)
	require.NoError(t, err)
	assert.Equal(t, "38 00 00 00 04", p.Hex())
	assert.Equal(t, "DEBUG_BLINK (DEBUG, unsigned): 38 00 00 00 04", p.String())
}
