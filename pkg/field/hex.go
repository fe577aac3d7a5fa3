package field

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHex decodes hex digit pairs, optionally separated by whitespace.
func ParseHex(s string) ([]byte, error) {
	var out []byte
	for _, group := range strings.Fields(s) {
		if len(group)%2 != 0 {
			return nil, fmt.Errorf("%w: odd digit count in %q", ErrFormat, group)
		}
		b, err := hex.DecodeString(group)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		out = append(out, b...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// FormatHex renders data as lowercase hex pairs separated by single spaces.
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// PadLeft returns data left-padded with zero bytes to length.
// Input longer than length is rejected rather than truncated.
func PadLeft(data []byte, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrRange, length)
	}
	if len(data) > length {
		return nil, fmt.Errorf("%w: %d bytes exceeds field length %d", ErrFormat, len(data), length)
	}
	out := make([]byte, length)
	copy(out[length-len(data):], data)
	return out, nil
}

// EncodeHexPadded decodes hex text and left-pads it with zeros to length.
func EncodeHexPadded(s string, length int) ([]byte, error) {
	data, err := ParseHex(s)
	if err != nil {
		return nil, err
	}
	return PadLeft(data, length)
}
