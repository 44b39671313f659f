// Package authn defines the pluggable authenticator contract the email
// session strategy delegates primary credential verification to, plus the
// bundled providers.
package authn

import (
	"context"
	"errors"
)

// Identity is the external identity an authenticator resolves.
type Identity struct {
	UserID       string `json:"user_id"`
	EmailAddress string `json:"email_address"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// SigninResult is the outcome of the first call of the two-call protocol.
type SigninResult struct {
	SessionID          string `json:"session_id"`
	AuthorizationToken string `json:"authorization_token"`
}

// SessionResult is the outcome of the second call.
type SessionResult struct {
	SessionID string   `json:"session_id"`
	User      Identity `json:"User"`
}

// ErrAuthenticationFailed is returned by providers on bad credentials. The
// wrapped detail stays provider-specific.
var ErrAuthenticationFailed = errors.New("authn: authentication failed")

// Authenticator is the two-operation contract every provider implements.
// Signin verifies the credential pair; GetSession exchanges the resulting
// session reference for the external identity.
type Authenticator interface {
	Signin(ctx context.Context, identifier, secret string) (*SigninResult, error)
	GetSession(ctx context.Context, sessionID, authorizationToken string) (*SessionResult, error)
}
