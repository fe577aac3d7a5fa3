// Package commands implements the causp-lock CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
)

// DefaultKeyringFile is used when no -keyring flag is given.
const DefaultKeyringFile = "keyring.yaml"

// LoadKeyring reads the keyring file at path. A missing file is an error.
func LoadKeyring(path string) (*keys.Keyring, error) {
	kr, err := persistence.NewKeyringStore(path).Load()
	if err != nil {
		return nil, err
	}
	if kr == nil {
		return nil, fmt.Errorf("keyring %s not found (create one with: causp-lock keygen -keyring %s)", path, path)
	}
	return kr, nil
}

// SaveKeyring writes kr to path.
func SaveKeyring(path string, kr *keys.Keyring) error {
	return persistence.NewKeyringStore(path).Save(kr)
}

// ParseRoles parses a comma-separated role list. An empty string selects
// every role.
func ParseRoles(s string) ([]keys.Role, error) {
	if strings.TrimSpace(s) == "" {
		return keys.Roles, nil
	}
	var roles []keys.Role
	for _, name := range strings.Split(s, ",") {
		r, err := keys.ParseRole(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// KeygenOptions configures the keygen command.
type KeygenOptions struct {
	Keyring string
	Roles   []keys.Role

	// Force replaces keys that already exist.
	Force bool
}

// RunKeygen generates keys for the selected roles and saves them, keeping
// other roles already in the file.
func RunKeygen(opts KeygenOptions, w io.Writer) error {
	store := persistence.NewKeyringStore(opts.Keyring)
	kr, err := store.Load()
	if err != nil {
		return err
	}
	if kr == nil {
		kr = keys.NewKeyring()
	}

	roles := opts.Roles
	if len(roles) == 0 {
		roles = keys.Roles
	}
	for _, role := range roles {
		if kr.Has(role) && !opts.Force {
			return fmt.Errorf("keyring %s already has a %s key (use -force to replace it)", opts.Keyring, role)
		}
	}

	for _, role := range roles {
		m, err := keys.Generate()
		if err != nil {
			return err
		}
		if err := kr.Set(role, m); err != nil {
			return err
		}
		fmt.Fprintf(w, "%-7s %s\n", role.String()+":", m)
	}

	if err := store.Save(kr); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved keyring to %s\n", opts.Keyring)
	return nil
}

// openEventLog returns a file logger for path, or a no-op logger and close
// function when path is empty.
func openEventLog(path string) (log.Logger, func() error, error) {
	if path == "" {
		return log.NoopLogger{}, func() error { return nil }, nil
	}
	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return fl, fl.Close, nil
}
