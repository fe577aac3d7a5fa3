package wire

// MessageType is the high nibble of a payload header.
type MessageType uint8

const (
	// MessageTypeAccess carries a physical access event.
	MessageTypeAccess MessageType = 0

	// MessageTypeSync carries a clock synchronization time.
	MessageTypeSync MessageType = 1

	// MessageTypeConfig carries a key rotation.
	MessageTypeConfig MessageType = 2

	// MessageTypeDebug carries an unauthenticated diagnostic command.
	MessageTypeDebug MessageType = 3
)

// MessageTypes lists every defined message type.
var MessageTypes = []MessageType{
	MessageTypeAccess,
	MessageTypeSync,
	MessageTypeConfig,
	MessageTypeDebug,
}

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeAccess:
		return "ACCESS"
	case MessageTypeSync:
		return "SYNC"
	case MessageTypeConfig:
		return "CONFIG"
	case MessageTypeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the message type is defined.
func (t MessageType) IsValid() bool {
	return t <= MessageTypeDebug
}

// Signed returns true if payloads of this type carry an authentication tag.
// DEBUG payloads are accepted by the device without one.
func (t MessageType) Signed() bool {
	return t.IsValid() && t != MessageTypeDebug
}
