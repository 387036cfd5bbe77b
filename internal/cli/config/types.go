// Package config provides configuration management for the leapconnect CLI.
//
// Configuration is layered with koanf: defaults, then leapconnect.yaml, then
// LEAPCONNECT_* environment variables, then command-line flags. Connection
// settings are grouped in named profiles under "connections"; top-level
// connection keys override the selected profile.
package config

import (
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Default configuration values.
const (
	DefaultStateFile   = ".leapconnect/state.db"
	DefaultLogFormat   = "text"
	DefaultOutput      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultMockAddr    = "127.0.0.1:8089"
	DefaultHMACAlgo    = "sha256"
)

// Config holds all CLI configuration options.
type Config struct {
	// Connection selects a profile from Connections.
	Connection  string                       `koanf:"connection"`
	Connections map[string]ConnectionProfile `koanf:"connections"`

	// Top-level connection overrides (usually from env or flags).
	ConnectionProfile `koanf:",squash"`

	StatePath   string        `koanf:"state_path"`
	Journal     bool          `koanf:"journal"`
	Verbose     bool          `koanf:"verbose"`
	LogFormat   string        `koanf:"log_format"`
	Output      string        `koanf:"output"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
	MockAddr    string        `koanf:"mock_addr"`

	// Resolved is the selected profile with overrides applied and ${VAR}
	// references expanded. Set by Load.
	Resolved ConnectionProfile `koanf:"-"`
}

// ConnectionProfile holds the settings of one remote API account.
type ConnectionProfile struct {
	BaseURL    string `koanf:"base_url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	CustomerID string `koanf:"customer_id"`
	AuthMode   string `koanf:"auth_mode"`

	// HMAC signing settings. When unset the username is used as key id and
	// the password as secret.
	HMACKeyID  string `koanf:"hmac_key_id"`
	HMACSecret string `koanf:"hmac_secret"`
	HMACAlgo   string `koanf:"hmac_algo"`
}

// ConnectionConfig converts the profile to the dispatcher's connection config.
func (p ConnectionProfile) ConnectionConfig() core.ConnectionConfig {
	return core.ConnectionConfig{
		BaseURL:    p.BaseURL,
		Username:   p.Username,
		Password:   p.Password,
		CustomerID: p.CustomerID,
		AuthMode:   core.AuthMode(p.AuthMode),
	}
}

// SigningKey returns the HMAC key id and secret for the profile.
func (p ConnectionProfile) SigningKey() (keyID, secret string) {
	keyID, secret = p.HMACKeyID, p.HMACSecret
	if keyID == "" {
		keyID = p.Username
	}
	if secret == "" {
		secret = p.Password
	}
	return keyID, secret
}

// merge overlays the non-empty fields of o onto p.
func (p ConnectionProfile) merge(o ConnectionProfile) ConnectionProfile {
	pick := func(base, override string) string {
		if override != "" {
			return override
		}
		return base
	}
	return ConnectionProfile{
		BaseURL:    pick(p.BaseURL, o.BaseURL),
		Username:   pick(p.Username, o.Username),
		Password:   pick(p.Password, o.Password),
		CustomerID: pick(p.CustomerID, o.CustomerID),
		AuthMode:   pick(p.AuthMode, o.AuthMode),
		HMACKeyID:  pick(p.HMACKeyID, o.HMACKeyID),
		HMACSecret: pick(p.HMACSecret, o.HMACSecret),
		HMACAlgo:   pick(p.HMACAlgo, o.HMACAlgo),
	}
}
