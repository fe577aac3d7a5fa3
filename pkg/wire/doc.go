// Package wire defines the binary wire format of lock payloads.
//
// A payload is a one-byte header, a body whose layout is fixed by the
// message type, and an optional 20-byte authentication tag:
//
//	byte 0:        header = (message_type << 4) | operation
//	bytes 1..N:    body
//	bytes N..N+20: tag (absent for DEBUG payloads)
//
// Nothing on the wire carries a length. The reader derives the body length
// from the message type in the header, so body lengths are part of the
// protocol contract.
//
// # Message Types
//
// There are four message types:
//   - ACCESS: check-in, check-out and bidirectional access (12-byte body)
//   - SYNC: device clock synchronization (8-byte body)
//   - CONFIG: key rotation (20-byte body)
//   - DEBUG: diagnostics (4, 8 or 32-byte body, never signed)
//
// # Explicit Codes
//
// Message type and operation codes are fixed constants. They must never be
// derived from declaration order.
package wire
