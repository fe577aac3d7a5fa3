package wire

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
)

// Body sizes in bytes.
const (
	UserIDSize = 4

	AccessBodySize = UserIDSize + field.TimestampLength
	SyncBodySize   = field.TimestampLength
	ConfigBodySize = keys.Size

	DebugTextSize      = 32
	DebugIntegerSize   = 4
	DebugTimestampSize = field.TimestampLength
)

// Value is the data carried by CONFIG and DEBUG bodies.
// The concrete type, not the operation, selects the encoding.
type Value interface {
	isValue()
}

// Key is raw key material placed in a CONFIG body unchanged.
type Key keys.Material

// HexText is hex digit text, zero-padded on the left to the field width.
type HexText string

// Integer is an unsigned 32-bit DEBUG value.
type Integer uint32

// Timestamp is a POSIX seconds DEBUG value.
type Timestamp time.Time

func (Key) isValue()       {}
func (HexText) isValue()   {}
func (Integer) isValue()   {}
func (Timestamp) isValue() {}

// Body holds the fields of a payload body. Which fields are used depends on
// the message type:
//   - ACCESS: UserID and Time
//   - SYNC: Time
//   - CONFIG: Data (Key or HexText)
//   - DEBUG: Data (HexText, Integer or Timestamp)
type Body struct {
	UserID uint32
	Time   time.Time
	Data   Value
}

// EncodeBody lays out body fields for message type t.
func EncodeBody(t MessageType, b Body) ([]byte, error) {
	switch t {
	case MessageTypeAccess:
		if b.Time.IsZero() {
			return nil, fmt.Errorf("%w: ACCESS body requires generated_at", ErrUnsupportedType)
		}
		uid, err := field.EncodeUint(uint64(b.UserID), UserIDSize, field.BigEndian)
		if err != nil {
			return nil, err
		}
		ts, err := field.EncodeTimestamp(b.Time, field.TimestampLength, field.BigEndian)
		if err != nil {
			return nil, err
		}
		return append(uid, ts...), nil

	case MessageTypeSync:
		if b.Time.IsZero() {
			return nil, fmt.Errorf("%w: SYNC body requires sync_time", ErrUnsupportedType)
		}
		return field.EncodeTimestamp(b.Time, field.TimestampLength, field.BigEndian)

	case MessageTypeConfig:
		switch v := b.Data.(type) {
		case Key:
			out := make([]byte, ConfigBodySize)
			copy(out, v[:])
			return out, nil
		case HexText:
			return field.EncodeHexPadded(string(v), ConfigBodySize)
		default:
			return nil, fmt.Errorf("%w: CONFIG body requires a key, got %T", ErrUnsupportedType, b.Data)
		}

	case MessageTypeDebug:
		switch v := b.Data.(type) {
		case HexText:
			return field.EncodeHexPadded(string(v), DebugTextSize)
		case Integer:
			return field.EncodeUint(uint64(v), DebugIntegerSize, field.BigEndian)
		case Timestamp:
			return field.EncodeTimestamp(time.Time(v), DebugTimestampSize, field.BigEndian)
		default:
			return nil, fmt.Errorf("%w: DEBUG body cannot carry %T", ErrUnsupportedType, b.Data)
		}

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, t)
	}
}

// DecodeBody parses a body of message type t. DEBUG bodies are told apart
// by their length alone.
func DecodeBody(t MessageType, data []byte) (Body, error) {
	var b Body

	switch t {
	case MessageTypeAccess:
		if len(data) != AccessBodySize {
			return b, bodySizeError(t, len(data))
		}
		uid, err := field.DecodeUint(data[:UserIDSize], field.BigEndian)
		if err != nil {
			return b, err
		}
		at, err := field.DecodeTimestamp(data[UserIDSize:], field.BigEndian)
		if err != nil {
			return b, err
		}
		b.UserID = uint32(uid)
		b.Time = at

	case MessageTypeSync:
		if len(data) != SyncBodySize {
			return b, bodySizeError(t, len(data))
		}
		at, err := field.DecodeTimestamp(data, field.BigEndian)
		if err != nil {
			return b, err
		}
		b.Time = at

	case MessageTypeConfig:
		if len(data) != ConfigBodySize {
			return b, bodySizeError(t, len(data))
		}
		var k Key
		copy(k[:], data)
		b.Data = k

	case MessageTypeDebug:
		switch len(data) {
		case DebugIntegerSize:
			n, err := field.DecodeUint(data, field.BigEndian)
			if err != nil {
				return b, err
			}
			b.Data = Integer(n)
		case DebugTimestampSize:
			at, err := field.DecodeTimestamp(data, field.BigEndian)
			if err != nil {
				return b, err
			}
			b.Data = Timestamp(at)
		case DebugTextSize:
			b.Data = HexText(hex.EncodeToString(data))
		default:
			return b, bodySizeError(t, len(data))
		}

	default:
		return b, fmt.Errorf("%w: %d", ErrUnsupportedType, t)
	}

	return b, nil
}

// BodySize returns the fixed body length of message type t.
// DEBUG bodies have no fixed length and report false.
func BodySize(t MessageType) (int, bool) {
	switch t {
	case MessageTypeAccess:
		return AccessBodySize, true
	case MessageTypeSync:
		return SyncBodySize, true
	case MessageTypeConfig:
		return ConfigBodySize, true
	default:
		return 0, false
	}
}

// IsDebugBodySize returns true if n is one of the DEBUG body widths.
func IsDebugBodySize(n int) bool {
	return n == DebugIntegerSize || n == DebugTimestampSize || n == DebugTextSize
}

func bodySizeError(t MessageType, n int) error {
	return fmt.Errorf("%w: %d-byte body is not valid for %s", ErrFormat, n, t)
}
