package payload

import (
	"fmt"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// Assemble builds the payload for op from body fields. signer must be nil
// for unsigned operations and hold the required role otherwise.
func Assemble(op wire.Operation, body wire.Body, signer *Signer) (*Payload, error) {
	t, err := op.MessageType()
	if err != nil {
		return nil, err
	}
	if err := authorize(op, signer); err != nil {
		return nil, err
	}

	header, err := wire.EncodeHeader(t, op)
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeBody(t, body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", op.Name(), err)
	}

	raw := make([]byte, 0, wire.HeaderSize+len(data)+TagSize)
	raw = append(raw, header)
	raw = append(raw, data...)

	p := &Payload{msgType: t, op: op, bodyLen: len(data)}
	if signer != nil {
		tag := mac.Sign(raw, signer.Key)
		raw = append(raw, tag[:]...)
		p.signed = true
	}
	p.raw = raw
	return p, nil
}

// CheckIn builds a CHECK_IN payload signed with the access key.
func CheckIn(userID uint32, at time.Time, s Signer) (*Payload, error) {
	return Assemble(wire.OpCheckIn, wire.Body{UserID: userID, Time: at}, &s)
}

// CheckOut builds a CHECK_OUT payload signed with the access key.
func CheckOut(userID uint32, at time.Time, s Signer) (*Payload, error) {
	return Assemble(wire.OpCheckOut, wire.Body{UserID: userID, Time: at}, &s)
}

// BiAccess builds a BI_ACCESS payload signed with the access key.
func BiAccess(userID uint32, at time.Time, s Signer) (*Payload, error) {
	return Assemble(wire.OpBiAccess, wire.Body{UserID: userID, Time: at}, &s)
}

// SetTime builds a SYNC payload signed with the sync key.
func SetTime(syncTime time.Time, s Signer) (*Payload, error) {
	return Assemble(wire.OpNone, wire.Body{Time: syncTime}, &s)
}

// SetMasterKey builds a master key rotation signed with the old master key.
func SetMasterKey(newKey keys.Material, s Signer) (*Payload, error) {
	return rotate(wire.OpSetMasterKey, newKey, s)
}

// SetConfigKey builds a config key rotation signed with the master key.
func SetConfigKey(newKey keys.Material, s Signer) (*Payload, error) {
	return rotate(wire.OpSetConfigKey, newKey, s)
}

// SetSyncKey builds a sync key rotation signed with the config key.
func SetSyncKey(newKey keys.Material, s Signer) (*Payload, error) {
	return rotate(wire.OpSetSyncKey, newKey, s)
}

// SetAccessKey builds an access key rotation signed with the config key.
func SetAccessKey(newKey keys.Material, s Signer) (*Payload, error) {
	return rotate(wire.OpSetAccessKey, newKey, s)
}

// rotate places the new key's raw bytes in a CONFIG body. A key may not
// sign its own installation.
func rotate(op wire.Operation, newKey keys.Material, s Signer) (*Payload, error) {
	if s.Key.Equal(newKey) {
		return nil, fmt.Errorf("%w: %s new key equals the signing key", ErrRoleMismatch, op.Name())
	}
	return Assemble(op, wire.Body{Data: wire.Key(newKey)}, &s)
}

// BlinkNTimes builds an unsigned DEBUG_BLINK payload with a 4-byte count.
func BlinkNTimes(n uint32) (*Payload, error) {
	return Assemble(wire.OpDebugBlink, wire.Body{Data: wire.Integer(n)}, nil)
}

// BlinkIfSync builds an unsigned DEBUG_SYNC payload carrying now.
func BlinkIfSync(now time.Time) (*Payload, error) {
	return Assemble(wire.OpDebugSync, wire.Body{Data: wire.Timestamp(now)}, nil)
}

// Debug builds an unsigned DEBUG payload whose body width is chosen by the
// concrete type of data.
func Debug(op wire.Operation, data wire.Value) (*Payload, error) {
	return Assemble(op, wire.Body{Data: data}, nil)
}

// Request describes any payload by operation. Fields that do not apply to
// the operation are ignored.
type Request struct {
	Operation wire.Operation
	UserID    uint32
	Time      time.Time

	// NewKey is the key a rotation installs, nil when absent. An all-zero
	// key is valid material.
	NewKey *keys.Material

	BlinkCount uint32

	// DebugData replaces the default DEBUG body value when set.
	DebugData wire.Value
}

// Build assembles the payload described by req.
func Build(req Request, signer *Signer) (*Payload, error) {
	switch req.Operation {
	case wire.OpCheckIn, wire.OpCheckOut, wire.OpBiAccess:
		return Assemble(req.Operation, wire.Body{UserID: req.UserID, Time: req.Time}, signer)

	case wire.OpNone:
		return Assemble(req.Operation, wire.Body{Time: req.Time}, signer)

	case wire.OpSetMasterKey, wire.OpSetConfigKey, wire.OpSetSyncKey, wire.OpSetAccessKey:
		if req.NewKey == nil {
			return nil, fmt.Errorf("%w: %s requires a new key", wire.ErrUnsupportedType, req.Operation.Name())
		}
		if signer == nil {
			return nil, authorize(req.Operation, nil)
		}
		return rotate(req.Operation, *req.NewKey, *signer)

	case wire.OpDebugBlink:
		data := req.DebugData
		if data == nil {
			data = wire.Integer(req.BlinkCount)
		}
		return Assemble(req.Operation, wire.Body{Data: data}, signer)

	case wire.OpDebugSync:
		data := req.DebugData
		if data == nil {
			data = wire.Timestamp(req.Time)
		}
		return Assemble(req.Operation, wire.Body{Data: data}, signer)

	default:
		return nil, fmt.Errorf("%w: operation %d", wire.ErrUnsupportedType, req.Operation)
	}
}
