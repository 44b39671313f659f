// Package memstore is the in-memory member.Store used for development
// servers and tests. All state lives behind a single mutex, which also makes
// WithTransaction trivially atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gridnet.org/internal/member"
)

// Store implements member.Store over plain maps.
type Store struct {
	mu       sync.Mutex
	users    map[string]member.User
	sessions map[string]member.Session
	apikeys  map[string]member.ApiKey
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for updated_at stamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]member.User),
		sessions: make(map[string]member.Session),
		apikeys:  make(map[string]member.ApiKey),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Users() member.UserStore       { return (*userStore)(s) }
func (s *Store) Sessions() member.SessionStore { return (*sessionStore)(s) }
func (s *Store) ApiKeys() member.ApiKeyStore   { return (*apikeyStore)(s) }

// WithTransaction runs fn against the store itself. There is no rollback
// here; each operation still locks individually.
func (s *Store) WithTransaction(_ context.Context, fn func(member.Store) error) error {
	return fn(s)
}

type userStore Store

func (s *userStore) FindByID(_ context.Context, userID string) (*member.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*member.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserEmail == email {
			return &u, nil
		}
	}
	return nil, member.ErrNotFound
}

func matchUser(u member.User, search member.UserSearch) bool {
	if search.UserName != "" && !strings.Contains(u.UserName, search.UserName) {
		return false
	}
	if search.UserEmail != "" && !strings.Contains(u.UserEmail, search.UserEmail) {
		return false
	}
	return true
}

func (s *userStore) List(_ context.Context, search member.UserSearch, page member.Page) ([]member.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]member.User, 0, len(s.users))
	for _, u := range s.users {
		if matchUser(u, search) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

func (s *userStore) Count(_ context.Context, search member.UserSearch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if matchUser(u, search) {
			n++
		}
	}
	return n, nil
}

func (s *userStore) Create(_ context.Context, user *member.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.UserID] = *user
	return nil
}

func (s *userStore) update(userID string, fn func(*member.User)) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0
	}
	fn(&u)
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return 1
}

func (s *userStore) SetName(_ context.Context, userID, name string) (int64, error) {
	return s.update(userID, func(u *member.User) { u.UserName = name }), nil
}

func (s *userStore) SetGroups(_ context.Context, userID, groups string) (int64, error) {
	return s.update(userID, func(u *member.User) { u.Groups = groups }), nil
}

func (s *userStore) SetMetadata(_ context.Context, userID string, metadata map[string]any) (int64, error) {
	return s.update(userID, func(u *member.User) { u.Metadata = metadata }), nil
}

func (s *userStore) SetLockedAt(_ context.Context, userID string, at *time.Time) (int64, error) {
	return s.update(userID, func(u *member.User) { u.LockedAt = at }), nil
}

type sessionStore Store

func (s *sessionStore) FindByID(_ context.Context, sessionID string) (*member.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &sess, nil
}

func matchSession(sess member.Session, search member.SessionSearch) bool {
	if search.UserID != "" && sess.UserID != search.UserID {
		return false
	}
	if !search.IncludeClosed && sess.ClosedAt != nil {
		return false
	}
	return true
}

func (s *sessionStore) List(_ context.Context, search member.SessionSearch, page member.Page) ([]member.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]member.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if matchSession(sess, search) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

func (s *sessionStore) Count(_ context.Context, search member.SessionSearch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, sess := range s.sessions {
		if matchSession(sess, search) {
			n++
		}
	}
	return n, nil
}

func (s *sessionStore) Create(_ context.Context, session *member.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	session.UpdatedAt = session.CreatedAt
	s.sessions[session.SessionID] = *session
	return nil
}

func (s *sessionStore) update(sessionID string, fn func(*member.Session)) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	fn(&sess)
	sess.UpdatedAt = s.now()
	s.sessions[sessionID] = sess
	return 1
}

func (s *sessionStore) SetMetadata(_ context.Context, sessionID string, metadata map[string]any) (int64, error) {
	return s.update(sessionID, func(sess *member.Session) { sess.Metadata = metadata }), nil
}

func (s *sessionStore) SetLockedAt(_ context.Context, sessionID string, at *time.Time) (int64, error) {
	return s.update(sessionID, func(sess *member.Session) { sess.LockedAt = at }), nil
}

func (s *sessionStore) SetLockedAtForUser(_ context.Context, userID string, at *time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			sess.LockedAt = at
			sess.UpdatedAt = s.now()
			s.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (s *sessionStore) SetClosedAt(_ context.Context, sessionID string, at *time.Time) (int64, error) {
	return s.update(sessionID, func(sess *member.Session) { sess.ClosedAt = at }), nil
}

func (s *sessionStore) DeleteAbandoned(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if !sess.AbandonAt.After(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

type apikeyStore Store

func (s *apikeyStore) FindByID(_ context.Context, apikeyID string) (*member.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.apikeys[apikeyID]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &key, nil
}

func (s *apikeyStore) FindByPublicKey(_ context.Context, apikey string) (*member.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.apikeys {
		if key.ApiKey == apikey {
			return &key, nil
		}
	}
	return nil, member.ErrNotFound
}

func (s *apikeyStore) ListForUser(_ context.Context, userID string) ([]member.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]member.ApiKey, 0, 4)
	for _, key := range s.apikeys {
		if key.UserID == userID {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *apikeyStore) Create(_ context.Context, key *member.ApiKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = s.now()
	}
	key.UpdatedAt = key.CreatedAt
	s.apikeys[key.ApiKeyID] = *key
	return nil
}

func (s *apikeyStore) SetLockedAt(_ context.Context, apikeyID string, at *time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.apikeys[apikeyID]
	if !ok {
		return 0, nil
	}
	key.LockedAt = at
	key.UpdatedAt = s.now()
	s.apikeys[apikeyID] = key
	return 1, nil
}

func (s *apikeyStore) Delete(_ context.Context, apikeyID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apikeys[apikeyID]; !ok {
		return 0, nil
	}
	delete(s.apikeys, apikeyID)
	return 1, nil
}

func paginate[T any](items []T, page member.Page) []T {
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			return nil
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
