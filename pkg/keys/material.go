package keys

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
)

// Size is the length of key material in bytes.
const Size = 20

// Material is a fixed-length secret key.
type Material [Size]byte

// New builds key material from raw bytes, left-padding with zeros.
// Input longer than Size is a field.ErrFormat.
func New(b []byte) (Material, error) {
	var m Material
	padded, err := field.PadLeft(b, Size)
	if err != nil {
		return m, fmt.Errorf("key material: %w", err)
	}
	copy(m[:], padded)
	return m, nil
}

// FromHex builds key material from hex digit pairs, optionally
// whitespace separated, left-padding with zeros.
func FromHex(s string) (Material, error) {
	var m Material
	padded, err := field.EncodeHexPadded(s, Size)
	if err != nil {
		return m, fmt.Errorf("key material: %w", err)
	}
	copy(m[:], padded)
	return m, nil
}

// Generate draws new key material from the system's secure random source.
func Generate() (Material, error) {
	return generateFrom(rand.Reader)
}

// MustGenerate is like Generate but panics if the random source fails.
func MustGenerate() Material {
	m, err := Generate()
	if err != nil {
		panic(err)
	}
	return m
}

func generateFrom(r io.Reader) (Material, error) {
	var m Material
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return Material{}, fmt.Errorf("generate key material: %w", err)
	}
	return m, nil
}

// Bytes returns a copy of the raw key bytes.
func (m Material) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, m[:])
	return out
}

// Hex returns the display form: lowercase hex pairs separated by spaces.
// It is never used on the wire.
func (m Material) Hex() string {
	return field.FormatHex(m[:])
}

// String returns the display form.
func (m Material) String() string {
	return m.Hex()
}

// Equal compares two keys in constant time.
func (m Material) Equal(other Material) bool {
	return subtle.ConstantTimeCompare(m[:], other[:]) == 1
}

// IsZero returns true if every byte of the key is zero.
func (m Material) IsZero() bool {
	return m == Material{}
}
