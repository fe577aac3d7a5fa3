package payload

import (
	"fmt"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// Decoded is a parsed payload with its body fields.
type Decoded struct {
	*Payload
	Fields wire.Body
}

// Parse splits raw wire bytes into header, body and tag and decodes the
// body fields. The body length comes from the header's message type; DEBUG
// bodies take the remaining bytes and must be 4, 8 or 32 long. The tag is
// not checked.
func Parse(b []byte) (*Decoded, error) {
	p, err := split(b)
	if err != nil {
		return nil, err
	}
	return decode(p)
}

// Open checks b's tag against the key the hierarchy requires and only then
// decodes the body, so a tampered body always fails authentication.
// Unsigned DEBUG payloads are decoded without any check.
func Open(b []byte, ks KeySource) (*Decoded, error) {
	p, err := split(b)
	if err != nil {
		return nil, err
	}
	if p.Signed() {
		key, err := ks.Key(RequiredRole(p.Operation()))
		if err != nil {
			return nil, err
		}
		if err := p.Verify(key); err != nil {
			return nil, err
		}
	}
	return decode(p)
}

// split validates the header and the lengths it implies without looking at
// body values.
func split(b []byte) (*Payload, error) {
	if len(b) < wire.HeaderSize {
		return nil, fmt.Errorf("%w: empty payload", wire.ErrFormat)
	}

	t, op := wire.DecodeHeader(b[0])
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", wire.ErrUnsupportedType, t)
	}
	if !wire.ValidPair(t, op) {
		return nil, fmt.Errorf("%w: operation %d is not defined for %s", wire.ErrUnsupportedType, op, t)
	}

	bodyLen, fixed := wire.BodySize(t)
	if fixed {
		want := wire.HeaderSize + bodyLen + TagSize
		if len(b) != want {
			return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", wire.ErrFormat, op.Name(), len(b), want)
		}
	} else {
		bodyLen = len(b) - wire.HeaderSize
		if !wire.IsDebugBodySize(bodyLen) {
			return nil, fmt.Errorf("%w: %d-byte DEBUG body", wire.ErrFormat, bodyLen)
		}
	}

	return &Payload{
		raw:     append([]byte(nil), b...),
		msgType: t,
		op:      op,
		bodyLen: bodyLen,
		signed:  t.Signed(),
	}, nil
}

func decode(p *Payload) (*Decoded, error) {
	body, err := wire.DecodeBody(p.msgType, p.raw[wire.HeaderSize:wire.HeaderSize+p.bodyLen])
	if err != nil {
		return nil, err
	}
	return &Decoded{Payload: p, Fields: body}, nil
}

// Verify checks the payload's tag under key. An unsigned payload never
// verifies.
func (p *Payload) Verify(key keys.Material) error {
	if !p.signed {
		return mac.ErrAuthentication
	}
	return mac.Check(p.Message(), key, p.Tag())
}

// NewKey returns the key carried by a rotation payload.
func (d *Decoded) NewKey() (keys.Material, bool) {
	k, ok := d.Fields.Data.(wire.Key)
	return keys.Material(k), ok
}

// BlinkCount returns the count carried by an integer DEBUG body.
func (d *Decoded) BlinkCount() (uint32, bool) {
	n, ok := d.Fields.Data.(wire.Integer)
	return uint32(n), ok
}

// Request reconstructs the request that would assemble this payload.
func (d *Decoded) Request() Request {
	req := Request{
		Operation: d.Operation(),
		UserID:    d.Fields.UserID,
		Time:      d.Fields.Time,
	}
	switch v := d.Fields.Data.(type) {
	case wire.Key:
		k := keys.Material(v)
		req.NewKey = &k
	case wire.Integer:
		req.BlinkCount = uint32(v)
	default:
		req.DebugData = v
	}
	return req
}

// ApplyRotation installs the key carried by an opened rotation payload into
// kr, the way the lock does after accepting it. It returns the rotated role.
func ApplyRotation(kr *keys.Keyring, d *Decoded) (keys.Role, error) {
	role, ok := RotatedRole(d.Operation())
	if !ok {
		return keys.RoleNone, fmt.Errorf("%w: %s is not a key rotation", wire.ErrUnsupportedType, d.Operation().Name())
	}
	newKey, ok := d.NewKey()
	if !ok {
		return keys.RoleNone, fmt.Errorf("%w: rotation body carries no key", wire.ErrUnsupportedType)
	}
	return role, kr.Set(role, newKey)
}
