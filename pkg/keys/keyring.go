package keys

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMissingKey is returned when a keyring has no key for a role.
var ErrMissingKey = errors.New("no key for role")

// Keyring holds the current key for each role.
// It is safe for concurrent use.
type Keyring struct {
	mu   sync.RWMutex
	keys map[Role]Material
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[Role]Material)}
}

// Key returns the key held for role.
func (k *Keyring) Key(role Role) (Material, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	m, ok := k.keys[role]
	if !ok {
		return Material{}, fmt.Errorf("%w %s", ErrMissingKey, role)
	}
	return m, nil
}

// Set stores the key for role, replacing any previous key.
func (k *Keyring) Set(role Role, m Material) error {
	if !role.IsValid() {
		return fmt.Errorf("cannot store key for role %s", role)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[role] = m
	return nil
}

// Has returns true if a key is held for role.
func (k *Keyring) Has(role Role) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[role]
	return ok
}

// Roles returns the roles that have a key, superior roles first.
func (k *Keyring) Roles() []Role {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var out []Role
	for _, r := range Roles {
		if _, ok := k.keys[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Generate fills every role with freshly generated key material.
func (k *Keyring) Generate() error {
	for _, r := range Roles {
		m, err := Generate()
		if err != nil {
			return err
		}
		if err := k.Set(r, m); err != nil {
			return err
		}
	}
	return nil
}
