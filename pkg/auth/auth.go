// Package auth selects how requests for a connection are authenticated.
package auth

import "github.com/leapstack-labs/leapconnect/pkg/core"

// Select chooses the auth mode for a connection. An HMAC flag of exactly
// "Disabled" selects basic auth with the connection's credentials; any other
// value selects signed auth, which the transport carries out.
func Select(cfg core.ConnectionConfig) core.AuthDecision {
	if cfg.AuthMode == core.AuthModeDisabled {
		return core.AuthDecision{
			Kind: core.AuthBasic,
			Credentials: &core.Credentials{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		}
	}
	return core.AuthDecision{Kind: core.AuthSigned}
}
