package authn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"gridnet.org/internal/obs"
)

// Always accepts any credential pair and fabricates an identity from the
// email address. Development and test use only.
type Always struct {
	key    []byte
	logger zerolog.Logger
	now    func() time.Time
}

// NewAlways builds an Always provider signing its interim tokens with the
// given key.
func NewAlways(key string) *Always {
	return &Always{
		key:    []byte(key),
		logger: obs.Component("authn.always"),
		now:    time.Now,
	}
}

func (a *Always) Signin(_ context.Context, identifier, _ string) (*SigninResult, error) {
	sessionID := "always-session-" + identifier
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"timestamp":  a.now().UnixMilli(),
		"identifier": identifier,
		"session_id": sessionID,
	}).SignedString(a.key)
	if err != nil {
		return nil, err
	}
	a.logger.Trace().Str("identifier", identifier).Msg("signin ok")
	return &SigninResult{SessionID: sessionID, AuthorizationToken: raw}, nil
}

func (a *Always) GetSession(_ context.Context, sessionID, authorizationToken string) (*SessionResult, error) {
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
	first, last, _ := strings.Cut(identifier, "@")
	a.logger.Trace().Str("session_id", sessionID).Msg("get session ok")
	return &SessionResult{
		SessionID: sessionID,
		User: Identity{
			UserID:       "auth-user-" + identifier,
			EmailAddress: identifier,
			FirstName:    first,
			LastName:     last,
		},
	}, nil
}
