package member

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Find* methods when no row matches.
var ErrNotFound = errors.New("member: not found")

// UserSearch narrows a user listing. Name and email are substring matches.
type UserSearch struct {
	UserName  string
	UserEmail string
}

// SessionSearch narrows a session listing.
type SessionSearch struct {
	UserID        string
	IncludeClosed bool
}

// Page bounds a listing. CountOnly short-circuits the listing into a count.
type Page struct {
	Limit     int
	Offset    int
	CountOnly bool
}

// UserStore is the persistence contract for user rows.
type UserStore interface {
	FindByID(ctx context.Context, userID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, search UserSearch, page Page) ([]User, error)
	Count(ctx context.Context, search UserSearch) (int64, error)
	Create(ctx context.Context, user *User) error
	SetName(ctx context.Context, userID, name string) (int64, error)
	SetGroups(ctx context.Context, userID, groups string) (int64, error)
	SetMetadata(ctx context.Context, userID string, metadata map[string]any) (int64, error)
	SetLockedAt(ctx context.Context, userID string, at *time.Time) (int64, error)
}

// SessionStore is the persistence contract for session rows.
type SessionStore interface {
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context, search SessionSearch, page Page) ([]Session, error)
	Count(ctx context.Context, search SessionSearch) (int64, error)
	Create(ctx context.Context, session *Session) error
	SetMetadata(ctx context.Context, sessionID string, metadata map[string]any) (int64, error)
	SetLockedAt(ctx context.Context, sessionID string, at *time.Time) (int64, error)
	SetLockedAtForUser(ctx context.Context, userID string, at *time.Time) (int64, error)
	SetClosedAt(ctx context.Context, sessionID string, at *time.Time) (int64, error)
	DeleteAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// ApiKeyStore is the persistence contract for api key rows.
type ApiKeyStore interface {
	FindByID(ctx context.Context, apikeyID string) (*ApiKey, error)
	FindByPublicKey(ctx context.Context, apikey string) (*ApiKey, error)
	ListForUser(ctx context.Context, userID string) ([]ApiKey, error)
	Create(ctx context.Context, key *ApiKey) error
	SetLockedAt(ctx context.Context, apikeyID string, at *time.Time) (int64, error)
	Delete(ctx context.Context, apikeyID string) (int64, error)
}

// Store bundles the per-entity stores with a transactional scope.
// WithTransaction runs fn against a store view whose operations all commit
// or roll back together, at serializable isolation where the backend
// supports it.
type Store interface {
	Users() UserStore
	Sessions() SessionStore
	ApiKeys() ApiKeyStore
	WithTransaction(ctx context.Context, fn func(Store) error) error
}

// assertAffected guards single-row and counted bulk updates. A mismatch
// means the row vanished or multiplied under us, which is fatal for the
// call, never silently absorbed.
func assertAffected(op string, got, want int64) error {
	if got != want {
		return fmt.Errorf("%s affected %d rows, expected %d", op, got, want)
	}
	return nil
}
