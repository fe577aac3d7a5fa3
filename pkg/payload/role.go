package payload

import (
	"errors"
	"fmt"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// ErrRoleMismatch is returned when the authorizing role does not match the
// role the key hierarchy requires for an operation.
var ErrRoleMismatch = errors.New("authorizing role does not match operation")

// Signer is an authorizing key together with the role it is held under.
type Signer struct {
	Role keys.Role
	Key  keys.Material
}

// KeySource supplies the current key for a role.
type KeySource interface {
	Key(role keys.Role) (keys.Material, error)
}

// Compile-time interface satisfaction check.
var _ KeySource = (*keys.Keyring)(nil)

// RequiredRole returns the role whose key must sign op.
// Unsigned operations return keys.RoleNone.
func RequiredRole(op wire.Operation) keys.Role {
	switch op {
	case wire.OpCheckIn, wire.OpCheckOut, wire.OpBiAccess:
		return keys.RoleAccess
	case wire.OpNone:
		return keys.RoleSync
	case wire.OpSetMasterKey, wire.OpSetConfigKey:
		return keys.RoleMaster
	case wire.OpSetSyncKey, wire.OpSetAccessKey:
		return keys.RoleConfig
	default:
		return keys.RoleNone
	}
}

// RotatedRole returns the role whose key a rotation operation installs.
func RotatedRole(op wire.Operation) (keys.Role, bool) {
	switch op {
	case wire.OpSetMasterKey:
		return keys.RoleMaster, true
	case wire.OpSetConfigKey:
		return keys.RoleConfig, true
	case wire.OpSetSyncKey:
		return keys.RoleSync, true
	case wire.OpSetAccessKey:
		return keys.RoleAccess, true
	default:
		return keys.RoleNone, false
	}
}

// authorize checks signer against the hierarchy for op.
func authorize(op wire.Operation, signer *Signer) error {
	required := RequiredRole(op)
	switch {
	case required == keys.RoleNone && signer != nil:
		return fmt.Errorf("%w: %s is unsigned, got %s key", ErrRoleMismatch, op.Name(), signer.Role)
	case required == keys.RoleNone:
		return nil
	case signer == nil:
		return fmt.Errorf("%w: %s requires the %s key", ErrRoleMismatch, op.Name(), required)
	case signer.Role != required:
		return fmt.Errorf("%w: %s requires the %s key, got %s", ErrRoleMismatch, op.Name(), required, signer.Role)
	}
	return nil
}
