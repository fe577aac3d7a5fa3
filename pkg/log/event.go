package log

import (
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// Event is one audit record. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// IssueID uniquely identifies the issue or open attempt (UUID).
	IssueID string `cbor:"2,keyasint"`

	// Direction tells issued payloads from opened ones.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// Source names the caller (CLI, API client address).
	Source string `cbor:"5,keyasint,omitempty"`

	// One of these is set.
	Payload *PayloadEvent   `cbor:"6,keyasint,omitempty"`
	Error   *ErrorEventData `cbor:"7,keyasint,omitempty"`
}

// Direction indicates whether a payload was produced or consumed.
type Direction uint8

const (
	// DirectionIssued indicates a payload assembled by this system.
	DirectionIssued Direction = 0
	// DirectionOpened indicates a scanned payload that was parsed and verified.
	DirectionOpened Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIssued:
		return "ISSUED"
	case DirectionOpened:
		return "OPENED"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPayload indicates a successfully issued or opened payload.
	CategoryPayload Category = 0
	// CategoryError indicates a failed attempt.
	CategoryError Category = 1
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPayload:
		return "PAYLOAD"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// PayloadEvent describes a payload.
type PayloadEvent struct {
	MessageType wire.MessageType `cbor:"1,keyasint"`
	Operation   wire.Operation   `cbor:"2,keyasint"`

	// Role is the authorizing role, RoleNone for DEBUG payloads.
	Role keys.Role `cbor:"3,keyasint"`

	// Size is the wire length in bytes.
	Size   int  `cbor:"4,keyasint"`
	Signed bool `cbor:"5,keyasint,omitempty"`

	// UserID is set for ACCESS payloads.
	UserID *uint32 `cbor:"6,keyasint,omitempty"`

	// RecordID is the store identifier, if the payload was persisted.
	RecordID *int64 `cbor:"7,keyasint,omitempty"`

	ExpiresAt *time.Time `cbor:"8,keyasint,omitempty"`

	// Data is the wire bytes. Never set for CONFIG payloads.
	Data []byte `cbor:"9,keyasint,omitempty"`
}

// ErrorEventData describes a failed attempt.
type ErrorEventData struct {
	// Operation that was requested, if known.
	Operation *wire.Operation `cbor:"1,keyasint,omitempty"`

	// Kind classifies the failure.
	Kind ErrorKind `cbor:"2,keyasint"`

	// Message is the error text.
	Message string `cbor:"3,keyasint"`
}

// NewPayloadEvent describes p for the audit trail. Raw bytes are kept
// only for message types that carry no key material.
func NewPayloadEvent(p *payload.Payload, fields wire.Body) *PayloadEvent {
	ev := &PayloadEvent{
		MessageType: p.MessageType(),
		Operation:   p.Operation(),
		Role:        payload.RequiredRole(p.Operation()),
		Size:        p.Len(),
		Signed:      p.Signed(),
	}
	if p.MessageType() == wire.MessageTypeAccess {
		uid := fields.UserID
		ev.UserID = &uid
	}
	if p.MessageType() != wire.MessageTypeConfig {
		ev.Data = p.Bytes()
	}
	return ev
}
