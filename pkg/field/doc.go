// Package field encodes the fixed-width binary fields carried in lock payloads.
//
// Every function takes an explicit byte length and, where it matters, a byte
// order. Nothing is truncated: a value that does not fit its field is an
// ErrRange, malformed hex text is an ErrFormat.
//
// # Hex Text
//
// Keys and debug data are provisioned as hex digit pairs, optionally
// separated by whitespace:
//
//	"85f1e204"
//	"85 f1 e2 04"
//
// Each whitespace-separated group must contain an even number of digits.
package field
