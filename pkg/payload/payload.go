package payload

import (
	"fmt"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// Payload is an assembled wire payload: header‖body‖tag?.
// It is immutable and holds no reference to the signing key.
type Payload struct {
	raw     []byte
	msgType wire.MessageType
	op      wire.Operation
	bodyLen int
	signed  bool
}

// Bytes returns a copy of the wire bytes.
func (p *Payload) Bytes() []byte {
	return append([]byte(nil), p.raw...)
}

// Len returns the wire length in bytes.
func (p *Payload) Len() int {
	return len(p.raw)
}

// Header returns the header byte.
func (p *Payload) Header() byte {
	return p.raw[0]
}

// Body returns a copy of the body bytes.
func (p *Payload) Body() []byte {
	return append([]byte(nil), p.raw[wire.HeaderSize:wire.HeaderSize+p.bodyLen]...)
}

// Message returns a copy of header‖body, the bytes covered by the tag.
func (p *Payload) Message() []byte {
	return append([]byte(nil), p.raw[:wire.HeaderSize+p.bodyLen]...)
}

// Tag returns a copy of the authentication tag, or nil if unsigned.
func (p *Payload) Tag() []byte {
	if !p.signed {
		return nil
	}
	return append([]byte(nil), p.raw[wire.HeaderSize+p.bodyLen:]...)
}

// Signed returns true if the payload carries a tag.
func (p *Payload) Signed() bool {
	return p.signed
}

// MessageType returns the header's message type.
func (p *Payload) MessageType() wire.MessageType {
	return p.msgType
}

// Operation returns the header's operation.
func (p *Payload) Operation() wire.Operation {
	return p.op
}

// Hex returns the wire bytes as lowercase hex pairs separated by spaces.
func (p *Payload) Hex() string {
	return field.FormatHex(p.raw)
}

// String returns a short description of the payload.
func (p *Payload) String() string {
	signed := "unsigned"
	if p.signed {
		signed = "signed"
	}
	return fmt.Sprintf("%s (%s, %s): %s", p.op.Name(), p.msgType, signed, p.Hex())
}

// TagSize re-exports the tag length for callers sizing buffers.
const TagSize = mac.TagSize
