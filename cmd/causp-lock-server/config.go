package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SecretEnv overrides api_secret when set.
const SecretEnv = "SECRET_KEY"

// ServerConfig is the server configuration file.
type ServerConfig struct {
	ListenAddr  string `json:"listen_addr" yaml:"listen_addr"`
	DBPath      string `json:"db_path" yaml:"db_path"`
	KeyringFile string `json:"keyring_file" yaml:"keyring_file"`

	// APISecret signs payload text posted to /qrcodes. Taken as UTF-8 bytes.
	APISecret string `json:"api_secret" yaml:"api_secret"`

	// APIToken is the bearer token for /payloads and /verify. Defaults to
	// APISecret.
	APIToken string `json:"api_token" yaml:"api_token"`

	// TrustedProxies are addresses or CIDR ranges allowed to set
	// X-Forwarded-For.
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`

	// EventLog is the payload event log path. Empty disables it.
	EventLog string `json:"event_log" yaml:"event_log"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"` // requests/second per client
	Burst     int     `json:"burst" yaml:"burst"`

	// Expiry of issued payloads, in seconds. Zero keeps the built-in default,
	// a negative value disables expiry.
	AccessTTLSeconds int `json:"access_ttl_seconds" yaml:"access_ttl_seconds"`
	SyncTTLSeconds   int `json:"sync_ttl_seconds" yaml:"sync_ttl_seconds"`

	// PruneIntervalSeconds is how often expired records are deleted.
	// A negative value disables pruning.
	PruneIntervalSeconds int `json:"prune_interval_seconds" yaml:"prune_interval_seconds"`
}

// loadConfig reads a YAML or JSON config file. An empty path yields the
// defaults.
func loadConfig(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case ".json":
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("unsupported config extension %q (use .json/.yaml/.yml)", ext)
		}
	}

	if v := os.Getenv(SecretEnv); v != "" {
		cfg.APISecret = v
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.DBPath == "" {
		c.DBPath = "causp.db"
	}
	if c.KeyringFile == "" {
		c.KeyringFile = "keyring.yaml"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}
	if c.Burst == 0 {
		c.Burst = 20
	}
	if c.PruneIntervalSeconds == 0 {
		c.PruneIntervalSeconds = 60
	}
}

func (c *ServerConfig) validate() error {
	if c.APISecret == "" {
		return errors.New("api_secret is required (or set " + SecretEnv + ")")
	}
	if c.Burst < 0 {
		return fmt.Errorf("invalid burst %d", c.Burst)
	}
	return nil
}

// ttl converts a seconds setting into an issuer TTL override.
// ok is false when the built-in default should apply.
func ttl(seconds int) (d time.Duration, ok bool) {
	switch {
	case seconds == 0:
		return 0, false
	case seconds < 0:
		return 0, true
	default:
		return time.Duration(seconds) * time.Second, true
	}
}
