package core

import (
	"fmt"
	"strings"
)

// AuthMode is the connection's HMAC mode flag.
type AuthMode string

// Auth mode flag values offered to the user.
const (
	AuthModeEnabled  AuthMode = "Enabled"
	AuthModeDisabled AuthMode = "Disabled"
)

// Connection property keys as sent by the integration engine.
const (
	PropertyBaseURL    = "BaseUrl"
	PropertyUsername   = "Username"
	PropertyPassword   = "Password"
	PropertyCustomerID = "CustomerId"
	PropertyHMAC       = "HMAC"
)

// Connection property labels used in validation messages.
const (
	LabelBaseURL    = "Base Url"
	LabelUsername   = "Username"
	LabelPassword   = "Password"
	LabelCustomerID = "Customer Id"
	LabelHMAC       = "HMAC"
)

// ConnectionConfig holds everything needed to address the remote API.
// Password arrives already decrypted.
type ConnectionConfig struct {
	BaseURL    string   `koanf:"base_url"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	CustomerID string   `koanf:"customer_id"`
	AuthMode   AuthMode `koanf:"auth_mode"`
}

// ConfigFromProperties reads a connection config from the engine's property bag.
// The result still needs Validate.
func ConfigFromProperties(props map[string]string) (ConnectionConfig, error) {
	if props == nil {
		return ConnectionConfig{}, &InvalidConfigurationError{Reason: "connection properties are nil"}
	}
	return ConnectionConfig{
		BaseURL:    props[PropertyBaseURL],
		Username:   props[PropertyUsername],
		Password:   props[PropertyPassword],
		CustomerID: props[PropertyCustomerID],
		AuthMode:   AuthMode(props[PropertyHMAC]),
	}, nil
}

// Validate checks that every field is set and normalizes BaseURL by stripping
// a trailing slash.
func (c *ConnectionConfig) Validate() error {
	required := []struct {
		key, label, value string
	}{
		{PropertyBaseURL, LabelBaseURL, c.BaseURL},
		{PropertyUsername, LabelUsername, c.Username},
		{PropertyPassword, LabelPassword, c.Password},
		{PropertyCustomerID, LabelCustomerID, c.CustomerID},
		{PropertyHMAC, LabelHMAC, string(c.AuthMode)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &InvalidConfigurationError{Field: r.key, Label: r.label}
		}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

// Redacted returns a printable form of the config with the password masked.
func (c ConnectionConfig) Redacted() string {
	return fmt.Sprintf("base_url=%s username=%s customer_id=%s auth_mode=%s password=***",
		c.BaseURL, c.Username, c.CustomerID, c.AuthMode)
}

// =============================================================================
// Auth decisions
// =============================================================================

// AuthKind is how the transport must authenticate a request.
type AuthKind string

// Auth kinds.
const (
	AuthBasic  AuthKind = "Basic"
	AuthSigned AuthKind = "Signed"
)

// Credentials are plain username/password credentials.
type Credentials struct {
	Username string
	Password string
}

// AuthDecision is the outcome of auth selection for a connection.
// Credentials is nil for signed auth.
type AuthDecision struct {
	Kind        AuthKind
	Credentials *Credentials
}
