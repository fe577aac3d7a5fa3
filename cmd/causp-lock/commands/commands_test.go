package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

var fixtureKeys = map[keys.Role]string{
	keys.RoleAccess: "85f1e204ba63fe41a0f0da37743e8d1c6af533fc",
	keys.RoleSync:   "bf429e3529c5f14ebb818c15a3cd9804f61d4b98",
	keys.RoleMaster: "ed5c53fe28c86447a033dca216d7516b58956c34",
	keys.RoleConfig: "e7e50011c6ffebf0eea6f947e6c543bbc97e42db",
}

func writeFixtureKeyring(t *testing.T) string {
	t.Helper()
	kr := keys.NewKeyring()
	for role, h := range fixtureKeys {
		k, err := keys.FromHex(h)
		require.NoError(t, err)
		require.NoError(t, kr.Set(role, k))
	}
	path := filepath.Join(t.TempDir(), "keyring.yaml")
	require.NoError(t, SaveKeyring(path, kr))
	return path
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles("")
	require.NoError(t, err)
	assert.Equal(t, keys.Roles, roles)

	roles, err = ParseRoles("access, sync")
	require.NoError(t, err)
	assert.Equal(t, []keys.Role{keys.RoleAccess, keys.RoleSync}, roles)

	_, err = ParseRoles("access,admin")
	assert.Error(t, err)
}

func TestRunKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k", "keyring.yaml")
	var out bytes.Buffer

	require.NoError(t, RunKeygen(KeygenOptions{Keyring: path}, &out))
	assert.Contains(t, out.String(), "MASTER:")
	assert.Contains(t, out.String(), "Saved keyring to")

	kr, err := LoadKeyring(path)
	require.NoError(t, err)
	assert.Len(t, kr.Roles(), 4)
	oldSync, _ := kr.Key(keys.RoleSync)

	err = RunKeygen(KeygenOptions{Keyring: path, Roles: []keys.Role{keys.RoleSync}}, &out)
	assert.Error(t, err, "existing key without -force")

	require.NoError(t, RunKeygen(KeygenOptions{Keyring: path, Roles: []keys.Role{keys.RoleSync}, Force: true}, &out))
	kr, err = LoadKeyring(path)
	require.NoError(t, err)
	newSync, _ := kr.Key(keys.RoleSync)
	assert.False(t, oldSync.Equal(newSync))
}

func TestLoadKeyringMissing(t *testing.T) {
	_, err := LoadKeyring(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "causp-lock keygen")
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 7, 17, 15, 14, 0, 0, time.UTC)

	got, err := ParseTime("1752765240")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTime("2025-07-17T12:14:00-03:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseTime("tomorrow")
	assert.Error(t, err)
}

func TestParseIssueArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    IssueOptions
		wantErr bool
	}{
		{"check in", []string{"check_in", "42"}, IssueOptions{Operation: "check_in", UserID: 42}, false},
		{"check out with time", []string{"CHECK_OUT", "7", "1752765240"}, IssueOptions{Operation: "CHECK_OUT", UserID: 7, Time: "1752765240"}, false},
		{"sync", []string{"sync"}, IssueOptions{Operation: "sync"}, false},
		{"spaced key", []string{"set_sync_key", "bf42", "9e35"}, IssueOptions{Operation: "set_sync_key", NewKey: "bf429e35"}, false},
		{"blink", []string{"blink", "4"}, IssueOptions{Operation: "blink", BlinkCount: 4}, false},
		{"no operation", nil, IssueOptions{}, true},
		{"unknown operation", []string{"open"}, IssueOptions{}, true},
		{"missing user", []string{"bi_access"}, IssueOptions{}, true},
		{"user too wide", []string{"check_in", "4294967296"}, IssueOptions{}, true},
		{"missing key", []string{"set_access_key"}, IssueOptions{}, true},
		{"bad count", []string{"blink", "x"}, IssueOptions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIssueArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest(IssueOptions{Operation: "set_time", Time: "1752762540"})
	require.NoError(t, err)
	assert.Equal(t, wire.OpNone, req.Operation)
	assert.Equal(t, int64(1752762540), req.Time.Unix())

	req, err = BuildRequest(IssueOptions{Operation: "set_access_key", NewKey: RandomKey})
	require.NoError(t, err)
	require.NotNil(t, req.NewKey)
	assert.False(t, req.NewKey.IsZero())

	req, err = BuildRequest(IssueOptions{Operation: "set_access_key", NewKey: "00"})
	require.NoError(t, err)
	require.NotNil(t, req.NewKey)
	assert.True(t, req.NewKey.IsZero())

	_, err = BuildRequest(IssueOptions{Operation: "check_in", UserID: 1 << 32})
	assert.ErrorIs(t, err, wire.ErrRange)

	_, err = BuildRequest(IssueOptions{Operation: "set_access_key", NewKey: "abc"})
	assert.Error(t, err)
}

func TestRunIssueCheckIn(t *testing.T) {
	path := writeFixtureKeyring(t)
	dir := t.TempDir()
	qrPath := filepath.Join(dir, "check_in.png")
	logPath := filepath.Join(dir, "events"+log.FileExt)

	var out bytes.Buffer
	res, err := RunIssue(context.Background(), IssueOptions{
		Keyring:   path,
		Operation: "CHECK_IN",
		UserID:    2305947582,
		Time:      "2025-07-17T15:14:00Z",
		QRPath:    qrPath,
		Scale:     2,
		EventLog:  logPath,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "01 89 71 f7 be 00 00 00 00 68 79 13 38 84 ea bd 22 f5 5f 5e 7c cd 83 2b 58 a7 b1 a1 3c dc 59 b1 37", res.Payload.Hex())
	assert.Contains(t, out.String(), "action: CHECK_IN")
	assert.Contains(t, out.String(), "signed by: ACCESS")
	assert.Contains(t, out.String(), "expires:")

	_, err = os.Stat(qrPath)
	assert.NoError(t, err)

	reader, err := log.NewReader(logPath)
	require.NoError(t, err)
	defer reader.Close()
	events, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cli", events[0].Source)
}

func TestRunIssueMissingKeyring(t *testing.T) {
	_, err := RunIssue(context.Background(), IssueOptions{
		Keyring:   filepath.Join(t.TempDir(), "none.yaml"),
		Operation: "SYNC",
	}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunIssueCommitRotation(t *testing.T) {
	path := writeFixtureKeyring(t)

	var out bytes.Buffer
	res, err := RunIssue(context.Background(), IssueOptions{
		Keyring:   path,
		Operation: "SET_ACCESS_KEY",
		NewKey:    RandomKey,
		Commit:    true,
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "new access key:")
	assert.Contains(t, out.String(), "Committed new ACCESS key")

	kr, err := LoadKeyring(path)
	require.NoError(t, err)
	access, err := kr.Key(keys.RoleAccess)
	require.NoError(t, err)
	assert.Equal(t, res.Payload.Body(), access.Bytes())

	// Keys the rotation does not touch stay as they were.
	cfgKey, err := kr.Key(keys.RoleConfig)
	require.NoError(t, err)
	assert.Equal(t, fixtureKeys[keys.RoleConfig], strings.ReplaceAll(cfgKey.Hex(), " ", ""))
}

func TestRunVerify(t *testing.T) {
	path := writeFixtureKeyring(t)

	var out bytes.Buffer
	d, err := RunVerify(context.Background(), VerifyOptions{
		Keyring: path,
		Payload: "1000000000687908acc3fca2fd2ae9d8da927425fd9b547ad7989681bb",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, wire.OpNone, d.Operation())
	assert.Contains(t, out.String(), "OK: valid SYNC signature")
	assert.Contains(t, out.String(), "sync time: 2025-07-17T14:29:00Z")

	_, err = RunVerify(context.Background(), VerifyOptions{
		Keyring: path,
		Payload: "1000000000687908acc3fca2fd2ae9d8da927425fd9b547ad7989681bc",
	}, &out)
	assert.ErrorIs(t, err, mac.ErrAuthentication)
}

func TestRunVerifyApply(t *testing.T) {
	path := writeFixtureKeyring(t)

	var out bytes.Buffer
	_, err := RunVerify(context.Background(), VerifyOptions{
		Keyring: path,
		Payload: "2785f1e204ba63fe41a0f0da37743e8d1c6af533fc9fa0c0f19aa8d43176a10897529203dcf7bac1b8",
		Apply:   true,
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Installed new ACCESS key")

	// Applying a non-rotation is refused.
	_, err = RunVerify(context.Background(), VerifyOptions{
		Keyring: path,
		Payload: "3800000004",
		Apply:   true,
	}, &out)
	assert.ErrorIs(t, err, wire.ErrUnsupportedType)
}

func TestRunDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"check in", "018971f7be000000006879133884eabd22f55f5e7ccd832b58a7b1a13cdc59b137", []string{"CHECK_IN (ACCESS)", "user id:   2305947582", "2025-07-17T15:14:00Z"}},
		{"blink", "38 00 00 00 04", []string{"DEBUG_BLINK (DEBUG)", "count:     4"}},
		{"debug sync", "3900000000687910a4", []string{"DEBUG_SYNC", "time:"}},
		{"rotation", "26bf429e3529c5f14ebb818c15a3cd9804f61d4b989971f45d8d3472d40d4397ad43391114ba3fccb8", []string{"new sync key: bf 42 9e 35"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := RunDecode(tt.payload, &out)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}

	_, err := RunDecode("0189", &bytes.Buffer{})
	assert.ErrorIs(t, err, wire.ErrFormat)
}
