// Package token mints and decodes network tokens: transient signed bearer
// credentials that embed a point-in-time User/Session snapshot. Tokens are
// never persisted or revoked; a renewal mints a fresh token for the same
// session.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gridnet.org/internal/ids"
)

// ErrInvalidToken indicates input that is not a well-formed signed token.
var ErrInvalidToken = errors.New("token: invalid token")

// UserSnapshot is the point-in-time copy of a user embedded in a token.
// It may go stale relative to the store; privileged commands re-validate
// live state rather than trusting these fields.
type UserSnapshot struct {
	UserID              string         `json:"user_id"`
	AuthenticatorUserID string         `json:"authenticator_user_id,omitempty"`
	UserName            string         `json:"user_name,omitempty"`
	UserEmail           string         `json:"user_email"`
	Groups              string         `json:"groups"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	LockedAt            *time.Time     `json:"locked_at"`
}

// SessionSnapshot is the point-in-time copy of a session embedded in a
// token.
type SessionSnapshot struct {
	SessionID              string         `json:"session_id"`
	UserID                 string         `json:"user_id"`
	ApiKeyID               string         `json:"apikey_id,omitempty"`
	AuthenticatorUserID    string         `json:"authenticator_user_id,omitempty"`
	AuthenticatorSessionID string         `json:"authenticator_session_id,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	ExpiresAt              time.Time      `json:"expires_at"`
	AbandonAt              time.Time      `json:"abandon_at"`
	ClosedAt               *time.Time     `json:"closed_at"`
	LockedAt               *time.Time     `json:"locked_at"`
	Metadata               map[string]any `json:"metadata,omitempty"`
	IPAddress              string         `json:"ip_address,omitempty"`
}

// Snapshot is the payload carried by every network token.
type Snapshot struct {
	User    UserSnapshot    `json:"User"`
	Session SessionSnapshot `json:"Session"`
}

// Claims is the full claim set of a network token. AbandonAt mirrors the
// expiry claim: past exp the token is expired, past aat it is abandoned and
// indistinguishable from garbage for renewal purposes.
type Claims struct {
	SessionID string   `json:"sid"`
	AbandonAt int64    `json:"aat"`
	Payload   Snapshot `json:"Payload"`
	jwt.RegisteredClaims
}

// Codec signs and verifies network tokens with a shared network key (HS256).
type Codec struct {
	key []byte
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec for the given network key.
func NewCodec(networkKey string, opts ...Option) (*Codec, error) {
	if networkKey == "" {
		return nil, errors.New("token: network key is required")
	}
	c := &Codec{key: []byte(networkKey), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint signs a token of the given kind carrying the payload snapshot.
// The expiry is now+duration and the abandon deadline expiry+abandonWindow.
func (c *Codec) Mint(payload Snapshot, kind string, duration, abandonWindow time.Duration, subjectID, sessionID string) (string, error) {
	if duration <= 0 {
		return "", errors.New("token: duration must be greater than zero")
	}
	now := c.now().UTC()
	expiresAt := now.Add(duration)
	abandonAt := expiresAt.Add(abandonWindow)
	claims := Claims{
		SessionID: sessionID,
		AbandonAt: abandonAt.Unix(),
		Payload:   payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ids.Keylike(kind, 16),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. It deliberately does
// NOT enforce expiry: expiry and abandonment are dispatcher policy, and an
// expired token must still decode so a caller can be told why it failed.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnverified parses the claims without checking the signature. Session
// renewal uses this to recover the session id from a token that may be long
// expired; everything recovered this way is re-checked against the store.
func (c *Codec) DecodeUnverified(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
