package wire

import "fmt"

// HeaderSize is the length of a payload header in bytes.
const HeaderSize = 1

// maxNibble is the largest value that fits in half a byte.
const maxNibble = 0x0f

// EncodeHeader packs a message type and operation into one byte.
// Values that do not fit a nibble are rejected rather than masked.
func EncodeHeader(t MessageType, op Operation) (byte, error) {
	if t > maxNibble {
		return 0, fmt.Errorf("%w: message type %d exceeds 4 bits", ErrRange, t)
	}
	if op > maxNibble {
		return 0, fmt.Errorf("%w: operation %d exceeds 4 bits", ErrRange, op)
	}
	return byte(t)<<4 | byte(op), nil
}

// DecodeHeader splits a header byte into its message type and operation.
// The values are not checked against the defined codes.
func DecodeHeader(b byte) (MessageType, Operation) {
	return MessageType(b >> 4), Operation(b & maxNibble)
}
