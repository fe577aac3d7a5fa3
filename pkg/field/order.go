package field

// Order is the byte order of a multi-byte field.
type Order uint8

const (
	// BigEndian stores the most significant byte first (network order).
	// This is the order used on the wire.
	BigEndian Order = 0

	// LittleEndian stores the least significant byte first.
	LittleEndian Order = 1
)

// String returns the byte order name.
func (o Order) String() string {
	switch o {
	case BigEndian:
		return "BIG_ENDIAN"
	case LittleEndian:
		return "LITTLE_ENDIAN"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the order is a known byte order.
func (o Order) IsValid() bool {
	return o <= LittleEndian
}
