// Package member implements the session lifecycle service: the four
// session-establishment strategies, network token issuance, and the
// administrative operations over users, sessions, and api keys.
package member

import (
	"time"

	"gridnet.org/internal/token"
)

// User is the persisted identity record. PasskeyHash-style secrets never
// live here; credentials hang off ApiKey rows or the external authenticator.
type User struct {
	UserID              string         `json:"user_id"`
	AuthenticatorUserID string         `json:"authenticator_user_id,omitempty"`
	UserName            string         `json:"user_name,omitempty"`
	UserEmail           string         `json:"user_email"`
	Groups              string         `json:"groups"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	LockedAt            *time.Time     `json:"locked_at"`
}

// Session is a standing authorization grant tied to one user. ExpiresAt is
// the soft deadline that forces renewal; AbandonAt is the hard deadline after
// which the row is purgeable. Invariant: abandon_at >= expires_at >=
// created_at.
type Session struct {
	SessionID              string         `json:"session_id"`
	UserID                 string         `json:"user_id"`
	ApiKeyID               string         `json:"apikey_id,omitempty"`
	AuthenticatorUserID    string         `json:"authenticator_user_id,omitempty"`
	AuthenticatorSessionID string         `json:"authenticator_session_id,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	ExpiresAt              time.Time      `json:"expires_at"`
	AbandonAt              time.Time      `json:"abandon_at"`
	ClosedAt               *time.Time     `json:"closed_at"`
	LockedAt               *time.Time     `json:"locked_at"`
	Metadata               map[string]any `json:"metadata,omitempty"`
	IPAddress              string         `json:"ip_address,omitempty"`
}

// ApiKey is a long-lived credential presented instead of a password. Only
// the bcrypt hash of the passkey is stored; the plaintext is returned once
// at creation and is unrecoverable afterwards.
type ApiKey struct {
	ApiKeyID    string     `json:"apikey_id"`
	UserID      string     `json:"user_id"`
	ApiKey      string     `json:"apikey"`
	PasskeyHash string     `json:"-"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LockedAt    *time.Time `json:"locked_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}

// SessionGrant is the result of every session-establishment path: the minted
// network token plus the live rows it snapshots.
type SessionGrant struct {
	SessionToken string  `json:"session_token"`
	User         User    `json:"User"`
	Session      Session `json:"Session"`
}

// ApiKeyGrant carries a freshly created api key. Passkey is the one and only
// disclosure of the plaintext secret.
type ApiKeyGrant struct {
	ApiKeyID string `json:"apikey_id"`
	ApiKey   string `json:"apikey"`
	Passkey  string `json:"passkey"`
}

// Snapshot produces the point-in-time copy embedded in network tokens.
func (u *User) Snapshot() token.UserSnapshot {
	return token.UserSnapshot{
		UserID:              u.UserID,
		AuthenticatorUserID: u.AuthenticatorUserID,
		UserName:            u.UserName,
		UserEmail:           u.UserEmail,
		Groups:              u.Groups,
		Metadata:            u.Metadata,
		CreatedAt:           u.CreatedAt,
		LockedAt:            u.LockedAt,
	}
}

// Snapshot produces the point-in-time copy embedded in network tokens.
func (s *Session) Snapshot() token.SessionSnapshot {
	return token.SessionSnapshot{
		SessionID:              s.SessionID,
		UserID:                 s.UserID,
		ApiKeyID:               s.ApiKeyID,
		AuthenticatorUserID:    s.AuthenticatorUserID,
		AuthenticatorSessionID: s.AuthenticatorSessionID,
		CreatedAt:              s.CreatedAt,
		ExpiresAt:              s.ExpiresAt,
		AbandonAt:              s.AbandonAt,
		ClosedAt:               s.ClosedAt,
		LockedAt:               s.LockedAt,
		Metadata:               s.Metadata,
		IPAddress:              s.IPAddress,
	}
}
