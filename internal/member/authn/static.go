package authn

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"gridnet.org/internal/obs"
)

// StaticUser is one entry of a fixed credential list.
type StaticUser struct {
	Identity Identity
	Secret   string
}

// Static authenticates against a fixed in-process user list. Suitable for
// small private networks and integration tests.
type Static struct {
	key    []byte
	users  map[string]StaticUser
	logger zerolog.Logger
	now    func() time.Time
}

// NewStatic builds a Static provider over the given users, keyed by email.
func NewStatic(key string, users []StaticUser) *Static {
	byEmail := make(map[string]StaticUser, len(users))
	for _, u := range users {
		byEmail[u.Identity.EmailAddress] = u
	}
	return &Static{
		key:    []byte(key),
		users:  byEmail,
		logger: obs.Component("authn.static"),
		now:    time.Now,
	}
}

func (s *Static) Signin(_ context.Context, identifier, secret string) (*SigninResult, error) {
	user, ok := s.users[identifier]
	if !ok {
		return nil, errors.New("Authentication failed (1).")
	}
	if user.Secret != secret {
		return nil, errors.New("Authentication failed (2).")
	}

	sessionID := "static-session-" + identifier
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"timestamp":  s.now().UnixMilli(),
		"identifier": identifier,
		"session_id": sessionID,
	}).SignedString(s.key)
	if err != nil {
		return nil, err
	}
	s.logger.Trace().Str("identifier", identifier).Str("session_id", sessionID).Msg("signin ok")
	return &SigninResult{SessionID: sessionID, AuthorizationToken: raw}, nil
}

func (s *Static) GetSession(_ context.Context, sessionID, authorizationToken string) (*SessionResult, error) {
	if sessionID == "" {
		return nil, errors.New("Missing session id.")
	}
	if authorizationToken == "" {
		return nil, errors.New("Missing authorization.")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(authorizationToken, claims); err != nil {
		return nil, errors.New("Invalid authorization.")
	}
	identifier, _ := claims["identifier"].(string)
	tokenSession, _ := claims["session_id"].(string)
	if identifier == "" || tokenSession == "" || claims["timestamp"] == nil {
		return nil, errors.New("Invalid authorization.")
	}
	if sessionID != tokenSession {
		return nil, errors.New("Invalid authorization.")
	}
	user, ok := s.users[identifier]
	if !ok {
		return nil, errors.New("Invalid authorization.")
	}
	s.logger.Trace().Str("session_id", sessionID).Str("email", identifier).Msg("get session ok")
	return &SessionResult{SessionID: sessionID, User: user.Identity}, nil
}
