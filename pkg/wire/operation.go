package wire

import (
	"fmt"
	"strings"
)

// Operation is the low nibble of a payload header.
type Operation uint8

const (
	// OpNone is used by message types without a sub-action (SYNC).
	OpNone Operation = 0

	// OpCheckIn records a user entering.
	OpCheckIn Operation = 1

	// OpCheckOut records a user leaving.
	OpCheckOut Operation = 2

	// OpBiAccess grants passage in either direction.
	OpBiAccess Operation = 3

	// OpSetMasterKey installs a new master key. Signed by the old master key.
	OpSetMasterKey Operation = 4

	// OpSetConfigKey installs a new config key. Signed by the master key.
	OpSetConfigKey Operation = 5

	// OpSetSyncKey installs a new sync key. Signed by the config key.
	OpSetSyncKey Operation = 6

	// OpSetAccessKey installs a new access key. Signed by the config key.
	OpSetAccessKey Operation = 7

	// OpDebugBlink blinks the device LED a number of times.
	OpDebugBlink Operation = 8

	// OpDebugSync blinks the device LED if its clock matches a given time.
	OpDebugSync Operation = 9
)

// Operations lists every defined operation.
var Operations = []Operation{
	OpNone,
	OpCheckIn,
	OpCheckOut,
	OpBiAccess,
	OpSetMasterKey,
	OpSetConfigKey,
	OpSetSyncKey,
	OpSetAccessKey,
	OpDebugBlink,
	OpDebugSync,
}

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpNone:
		return "NONE"
	case OpCheckIn:
		return "CHECK_IN"
	case OpCheckOut:
		return "CHECK_OUT"
	case OpBiAccess:
		return "BI_ACCESS"
	case OpSetMasterKey:
		return "SET_MASTER_KEY"
	case OpSetConfigKey:
		return "SET_CONFIG_KEY"
	case OpSetSyncKey:
		return "SET_SYNC_KEY"
	case OpSetAccessKey:
		return "SET_ACCESS_KEY"
	case OpDebugBlink:
		return "DEBUG_BLINK"
	case OpDebugSync:
		return "DEBUG_SYNC"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the operation is defined.
func (o Operation) IsValid() bool {
	return o <= OpDebugSync
}

// MessageType returns the message type an operation belongs to.
func (o Operation) MessageType() (MessageType, error) {
	switch o {
	case OpCheckIn, OpCheckOut, OpBiAccess:
		return MessageTypeAccess, nil
	case OpNone:
		return MessageTypeSync, nil
	case OpSetMasterKey, OpSetConfigKey, OpSetSyncKey, OpSetAccessKey:
		return MessageTypeConfig, nil
	case OpDebugBlink, OpDebugSync:
		return MessageTypeDebug, nil
	default:
		return 0, fmt.Errorf("%w: operation %d", ErrUnsupportedType, o)
	}
}

// ValidPair returns true if op is defined for message type t.
func ValidPair(t MessageType, op Operation) bool {
	owner, err := op.MessageType()
	return err == nil && owner == t
}

// ParseOperation parses an operation name, case-insensitively.
// "SYNC" and "SET_TIME" are accepted as aliases for the SYNC operation,
// and "BLINK" for DEBUG_BLINK.
func ParseOperation(s string) (Operation, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "SYNC", "SET_TIME":
		return OpNone, nil
	case "BLINK":
		return OpDebugBlink, nil
	}
	for _, op := range Operations {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operation %q", ErrUnsupportedType, s)
}

// Name returns the user-facing name of an operation. The SYNC operation is
// named after its message type rather than NONE.
func (o Operation) Name() string {
	if o == OpNone {
		return "SYNC"
	}
	return o.String()
}
