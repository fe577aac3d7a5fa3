package field

import "errors"

// Encoding errors.
var (
	ErrFormat = errors.New("malformed field input")
	ErrRange  = errors.New("value out of range for field")
)
