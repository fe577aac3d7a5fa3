package field

import (
	"fmt"
	"math"
	"time"
)

// MaxUintLength is the widest unsigned field supported, in bytes.
const MaxUintLength = 8

// TimestampLength is the width of a POSIX seconds field on the wire.
const TimestampLength = 8

// EncodeUint encodes value as an unsigned integer of exactly length bytes.
func EncodeUint(value uint64, length int, order Order) ([]byte, error) {
	if err := checkLayout(length, order); err != nil {
		return nil, err
	}
	if length < MaxUintLength && value>>(8*uint(length)) != 0 {
		return nil, fmt.Errorf("%w: %d does not fit in %d bytes", ErrRange, value, length)
	}

	out := make([]byte, length)
	for i := 0; i < length; i++ {
		b := byte(value >> (8 * uint(i)))
		if order == LittleEndian {
			out[i] = b
		} else {
			out[length-1-i] = b
		}
	}
	return out, nil
}

// DecodeUint decodes an unsigned integer spanning all of data.
func DecodeUint(data []byte, order Order) (uint64, error) {
	if err := checkLayout(len(data), order); err != nil {
		return 0, err
	}

	var value uint64
	for i := range data {
		var b byte
		if order == LittleEndian {
			b = data[len(data)-1-i]
		} else {
			b = data[i]
		}
		value = value<<8 | uint64(b)
	}
	return value, nil
}

// EncodeTimestamp encodes t as whole POSIX seconds in length bytes.
// Sub-second precision is dropped by flooring. Times before the epoch
// cannot be represented in an unsigned field.
func EncodeTimestamp(t time.Time, length int, order Order) ([]byte, error) {
	secs := t.Unix()
	if secs < 0 {
		return nil, fmt.Errorf("%w: %s is before the epoch", ErrRange, t.UTC().Format(time.RFC3339))
	}
	return EncodeUint(uint64(secs), length, order)
}

// DecodeTimestamp decodes a POSIX seconds field into a UTC time.
func DecodeTimestamp(data []byte, order Order) (time.Time, error) {
	secs, err := DecodeUint(data, order)
	if err != nil {
		return time.Time{}, err
	}
	if secs > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("%w: %d seconds overflows time", ErrRange, secs)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func checkLayout(length int, order Order) error {
	if length < 1 || length > MaxUintLength {
		return fmt.Errorf("%w: length %d not in 1..%d", ErrRange, length, MaxUintLength)
	}
	if !order.IsValid() {
		return fmt.Errorf("%w: unknown byte order %d", ErrRange, order)
	}
	return nil
}
