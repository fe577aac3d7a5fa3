package log

import (
	"errors"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// ErrorKind classifies a failed issue or open attempt.
type ErrorKind uint8

const (
	ErrorKindOther           ErrorKind = 0
	ErrorKindFormat          ErrorKind = 1
	ErrorKindRange           ErrorKind = 2
	ErrorKindUnsupportedType ErrorKind = 3
	ErrorKindAuthentication  ErrorKind = 4
	ErrorKindRoleMismatch    ErrorKind = 5
	ErrorKindMissingKey      ErrorKind = 6
	ErrorKindStorage         ErrorKind = 7
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindOther:
		return "OTHER"
	case ErrorKindFormat:
		return "FORMAT"
	case ErrorKindRange:
		return "RANGE"
	case ErrorKindUnsupportedType:
		return "UNSUPPORTED_TYPE"
	case ErrorKindAuthentication:
		return "AUTHENTICATION"
	case ErrorKindRoleMismatch:
		return "ROLE_MISMATCH"
	case ErrorKindMissingKey:
		return "MISSING_KEY"
	case ErrorKindStorage:
		return "STORAGE"
	default:
		return "UNKNOWN"
	}
}

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, mac.ErrAuthentication):
		return ErrorKindAuthentication
	case errors.Is(err, payload.ErrRoleMismatch):
		return ErrorKindRoleMismatch
	case errors.Is(err, keys.ErrMissingKey):
		return ErrorKindMissingKey
	case errors.Is(err, wire.ErrUnsupportedType):
		return ErrorKindUnsupportedType
	case errors.Is(err, field.ErrRange):
		return ErrorKindRange
	case errors.Is(err, field.ErrFormat):
		return ErrorKindFormat
	case errors.Is(err, persistence.ErrStorage):
		return ErrorKindStorage
	default:
		return ErrorKindOther
	}
}

// NewErrorEvent describes err for the audit trail.
func NewErrorEvent(op *wire.Operation, err error) *ErrorEventData {
	return &ErrorEventData{
		Operation: op,
		Kind:      KindOf(err),
		Message:   err.Error(),
	}
}
