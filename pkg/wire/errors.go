package wire

import (
	"errors"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
)

// ErrUnsupportedType is returned for an unknown message type, an operation
// that does not belong to its type, or a body missing a required field.
var ErrUnsupportedType = errors.New("unsupported message type")

// ErrRange and ErrFormat are the field encoding errors, re-exported so
// callers of this package can match them without importing field.
var (
	ErrRange  = field.ErrRange
	ErrFormat = field.ErrFormat
)
