package keys

import (
	"fmt"
	"strings"
)

// Role identifies a position in the key hierarchy.
type Role uint8

const (
	// RoleNone marks operations that are not signed.
	RoleNone Role = 0

	// RoleMaster authorizes master and config key rotation.
	RoleMaster Role = 1

	// RoleConfig authorizes sync and access key rotation.
	RoleConfig Role = 2

	// RoleSync signs time synchronization payloads.
	RoleSync Role = 3

	// RoleAccess signs access payloads.
	RoleAccess Role = 4
)

// Roles lists every signing role, superior roles first.
var Roles = []Role{RoleMaster, RoleConfig, RoleSync, RoleAccess}

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "NONE"
	case RoleMaster:
		return "MASTER"
	case RoleConfig:
		return "CONFIG"
	case RoleSync:
		return "SYNC"
	case RoleAccess:
		return "ACCESS"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the role is a signing role.
func (r Role) IsValid() bool {
	return r >= RoleMaster && r <= RoleAccess
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Roles {
		if r.String() == name {
			return r, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}
