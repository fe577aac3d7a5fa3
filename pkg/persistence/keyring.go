package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
)

// KeyringVersion is the current version of the keyring file format.
const KeyringVersion = 1

// KeyringFile is the on-disk form of a keyring.
//
//	version: 1
//	saved_at: 2025-07-17T15:14:00Z
//	keys:
//	  access: 85 f1 e2 04 ...
//	  sync: bf 42 9e 35 ...
type KeyringFile struct {
	Version int               `yaml:"version"`
	SavedAt time.Time         `yaml:"saved_at"`
	Keys    map[string]string `yaml:"keys"`
}

// KeyringStore manages persistence of a keyring to a YAML file.
type KeyringStore struct {
	mu   sync.Mutex
	path string
}

// NewKeyringStore creates a keyring store for path.
func NewKeyringStore(path string) *KeyringStore {
	return &KeyringStore{path: path}
}

// Path returns the file path.
func (s *KeyringStore) Path() string {
	return s.path
}

// Save writes kr to disk with owner-only permissions. The file is replaced
// atomically.
func (s *KeyringStore) Save(kr *keys.Keyring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	file := KeyringFile{
		Version: KeyringVersion,
		SavedAt: time.Now().UTC().Truncate(time.Second),
		Keys:    make(map[string]string),
	}
	for _, role := range kr.Roles() {
		m, err := kr.Key(role)
		if err != nil {
			return err
		}
		file.Keys[roleKey(role)] = m.Hex()
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".keyring-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Load reads the keyring from disk.
// Returns nil, nil if the file doesn't exist.
func (s *KeyringStore) Load() (*keys.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	var file KeyringFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse keyring %s: %w", s.path, err)
	}
	if file.Version > KeyringVersion {
		return nil, fmt.Errorf("keyring %s: unsupported version %d", s.path, file.Version)
	}

	kr := keys.NewKeyring()
	names := make([]string, 0, len(file.Keys))
	for name := range file.Keys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		role, err := keys.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("keyring %s: %w", s.path, err)
		}
		m, err := keys.FromHex(file.Keys[name])
		if err != nil {
			return nil, fmt.Errorf("keyring %s: %s key: %w", s.path, name, err)
		}
		if err := kr.Set(role, m); err != nil {
			return nil, err
		}
	}
	return kr, nil
}

// Clear removes the keyring file.
func (s *KeyringStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func roleKey(r keys.Role) string {
	return strings.ToLower(r.String())
}
