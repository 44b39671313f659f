package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gridnet.org/internal/dispatch"
	"gridnet.org/internal/ids"
	"gridnet.org/internal/member/authn"
	"gridnet.org/internal/obs"
	"gridnet.org/internal/token"
)

const bcryptCost = 12

// Config carries the lifecycle windows and bootstrap group assignments.
type Config struct {
	SessionDuration time.Duration
	SessionAbandon  time.Duration
	TokenDuration   time.Duration
	TokenAbandon    time.Duration

	// AdminUserGroups is granted to the very first user provisioned on the
	// network; DefaultUserGroups to everyone after.
	AdminUserGroups   string
	DefaultUserGroups string
}

// Service orchestrates session establishment, token issuance, and the
// administrative operations over users, sessions, and api keys.
type Service struct {
	store  Store
	authn  authn.Authenticator
	codec  *token.Codec
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs the member service.
func NewService(store Store, authenticator authn.Authenticator, codec *token.Codec, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:  store,
		authn:  authenticator,
		codec:  codec,
		cfg:    cfg,
		logger: obs.Component("member"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireApi(actx *dispatch.ApiContext) error {
	if actx == nil {
		return errors.New("This function must be called in the context of an Api.")
	}
	return nil
}

func requireUser(actx *dispatch.ApiContext) error {
	if err := requireApi(actx); err != nil {
		return err
	}
	if actx.User == nil {
		return errors.New("Authentication required.")
	}
	return nil
}

func validateUser(user *User) error {
	if user == nil {
		return errors.New("Missing required parameter [User].")
	}
	if user.LockedAt != nil {
		return errors.New("User is locked.")
	}
	return nil
}

func (s *Service) validateSession(session *Session) error {
	if session == nil {
		return errors.New("Missing required parameter [Session].")
	}
	if session.ClosedAt != nil {
		return errors.New("Session is closed.")
	}
	now := s.now()
	if !now.Before(session.ExpiresAt) {
		return errors.New("Session is expired.")
	}
	if !now.Before(session.AbandonAt) {
		return errors.New("Session is abandoned.")
	}
	if session.LockedAt != nil {
		return errors.New("Session is locked.")
	}
	return nil
}

// mintGrant signs a fresh network token over the live rows and surfaces it
// through the out-of-band authorization channel.
func (s *Service) mintGrant(user *User, session *Session, actx *dispatch.ApiContext) (*SessionGrant, error) {
	raw, err := s.codec.Mint(
		token.Snapshot{User: user.Snapshot(), Session: session.Snapshot()},
		"network",
		s.cfg.TokenDuration, s.cfg.TokenAbandon,
		user.UserID, session.SessionID,
	)
	if err != nil {
		return nil, err
	}
	if actx != nil {
		actx.ReturnAuthorization = raw
	}
	return &SessionGrant{SessionToken: raw, User: *user, Session: *session}, nil
}

// NewSession establishes a session using one of the four strategies and
// returns the minted network token alongside the user and session rows.
func (s *Service) NewSession(ctx context.Context, strategy, identifier, secret string, actx *dispatch.ApiContext) (*SessionGrant, error) {
	if err := requireApi(actx); err != nil {
		return nil, err
	}
	if strategy == "" {
		return nil, errors.New("Missing required parameter [Strategy].")
	}

	now := s.now()
	session := &Session{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
		AbandonAt: now.Add(s.cfg.SessionDuration + s.cfg.SessionAbandon),
		IPAddress: actx.SourceAddress,
	}

	strategy = strings.ToLower(strategy)
	switch strategy {

	case "apikey":
		// Identifier is the public key, Secret the passkey.
		if identifier == "" {
			return nil, errors.New("Missing required parameter [Identifier].")
		}
		if secret == "" {
			return nil, errors.New("Missing required parameter [Secret].")
		}
		key, err := s.store.ApiKeys().FindByPublicKey(ctx, identifier)
		if errors.Is(err, ErrNotFound) {
			return nil, errors.New("Invalid ApiKey.")
		} else if err != nil {
			return nil, err
		}
		// The lock check precedes expiry, expiry precedes the passkey.
		if key.LockedAt != nil {
			return nil, errors.New("The ApiKey is locked.")
		}
		if key.ExpiresAt != nil && !now.Before(*key.ExpiresAt) {
			return nil, errors.New("The ApiKey has expired.")
		}
		if bcrypt.CompareHashAndPassword([]byte(key.PasskeyHash), []byte(secret)) != nil {
			return nil, errors.New("Invalid PassKey.")
		}
		session.UserID = key.UserID
		session.ApiKeyID = key.ApiKeyID

	case "email":
		// Identifier is the email address, Secret the password.
		if identifier == "" {
			return nil, errors.New("Missing required parameter [Identifier].")
		}
		if secret == "" {
			return nil, errors.New("Missing required parameter [Secret].")
		}
		signin, err := s.authn.Signin(ctx, identifier, secret)
		if err != nil {
			return nil, err
		}
		if signin == nil || signin.SessionID == "" {
			return nil, errors.New("Authenticator response is missing session.")
		}
		if signin.AuthorizationToken == "" {
			return nil, errors.New("Authenticator response is missing authorization.")
		}
		authSession, err := s.authn.GetSession(ctx, signin.SessionID, signin.AuthorizationToken)
		if err != nil {
			return nil, err
		}
		if authSession == nil || authSession.SessionID == "" {
			return nil, errors.New("Authenticator response is missing session.")
		}
		identity := authSession.User
		if identity.UserID == "" {
			return nil, errors.New("Missing required parameter [authenticated_user.user_id].")
		}
		if identity.EmailAddress == "" {
			return nil, errors.New("Missing required parameter [authenticated_user.email_address].")
		}

		user, err := s.store.Users().FindByEmail(ctx, identity.EmailAddress)
		if errors.Is(err, ErrNotFound) {
			user, err = s.provisionUser(ctx, identity, now)
		}
		if err != nil {
			return nil, err
		}
		session.UserID = user.UserID
		session.AuthenticatorUserID = identity.UserID
		session.AuthenticatorSessionID = authSession.SessionID

	case "clerk":
		// Identity-provider passthrough. The contract is a placeholder.
		if secret == "" {
			return nil, errors.New("Missing required parameter [Secret].")
		}
		return nil, errors.New("Not implemented.")

	case "renew":
		// Secret is an existing, possibly long-expired network token. The
		// structural decode recovers the session id; only the lock state of
		// the old session gates the renewal.
		if secret == "" {
			return nil, errors.New("Missing required parameter [Secret].")
		}
		claims, err := s.codec.DecodeUnverified(secret)
		if err != nil {
			return nil, errors.New("Malformed network token, unable to decode.")
		}
		old, err := s.store.Sessions().FindByID(ctx, claims.SessionID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("Unable to find the session with session id [%s].", claims.SessionID)
		} else if err != nil {
			return nil, err
		}
		if old.LockedAt != nil {
			return nil, errors.New("Session is locked.")
		}
		session.UserID = old.UserID
		session.ApiKeyID = old.ApiKeyID
		session.AuthenticatorUserID = old.AuthenticatorUserID
		session.AuthenticatorSessionID = old.AuthenticatorSessionID

	default:
		return nil, fmt.Errorf("Invalid authentication strategy [%s].", strategy)
	}

	if session.UserID == "" {
		return nil, errors.New("Unable to determine the user id.")
	}

	user, err := s.store.Users().FindByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the user with user id [%s].", session.UserID)
	} else if err != nil {
		return nil, err
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("Unable to create session for user id [%s].", session.UserID)
	}

	s.logger.Info().
		Str("strategy", strategy).
		Str("user_id", user.UserID).
		Str("session_id", session.SessionID).
		Msg("session established")
	return s.mintGrant(user, session, actx)
}

// provisionUser creates a user row on first contact from the external
// authenticator. The first user ever created receives the admin bootstrap
// groups.
func (s *Service) provisionUser(ctx context.Context, identity authn.Identity, now time.Time) (*User, error) {
	groups := s.cfg.DefaultUserGroups
	count, err := s.store.Users().Count(ctx, UserSearch{})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		groups = s.cfg.AdminUserGroups
	}
	user := &User{
		UserID:              uuid.NewString(),
		AuthenticatorUserID: identity.UserID,
		UserName:            strings.TrimSpace(identity.FirstName + " " + identity.LastName),
		UserEmail:           identity.EmailAddress,
		Groups:              groups,
		CreatedAt:           now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, errors.New("Failed to create new user.")
	}
	s.logger.Info().
		Str("user_id", user.UserID).
		Str("user_email", user.UserEmail).
		Str("groups", groups).
		Msg("user provisioned")
	return user, nil
}

// NewNetworkToken re-mints a token for the session named by the presented
// authorization without creating a new session. The presented token may be
// expired; user and session state is re-validated against the store.
func (s *Service) NewNetworkToken(ctx context.Context, actx *dispatch.ApiContext) (*SessionGrant, error) {
	if err := requireApi(actx); err != nil {
		return nil, err
	}
	if actx.Authorization == "" {
		return nil, errors.New("Authentication required.")
	}
	claims, err := s.codec.Decode(actx.Authorization)
	if err != nil {
		return nil, errors.New("Malformed network token, unable to decode.")
	}

	user, err := s.store.Users().FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the user with user id [%s].", claims.Subject)
	} else if err != nil {
		return nil, err
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	session, err := s.store.Sessions().FindByID(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the session with session id [%s].", claims.SessionID)
	} else if err != nil {
		return nil, err
	}
	if err := s.validateSession(session); err != nil {
		return nil, err
	}

	return s.mintGrant(user, session, actx)
}

// LookupSession resolves a token to its live user and session rows without
// validating their status. Callers that need enforcement apply the
// dispatcher semantics themselves.
func (s *Service) LookupSession(ctx context.Context, networkToken string, _ *dispatch.ApiContext) (*SessionGrant, error) {
	if networkToken == "" {
		return nil, errors.New("Missing required parameter [NetworkToken].")
	}
	claims, err := s.codec.Decode(networkToken)
	if err != nil {
		return nil, errors.New("Malformed network token, unable to decode.")
	}

	user, err := s.store.Users().FindByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the user with user id [%s].", claims.Subject)
	} else if err != nil {
		return nil, err
	}
	session, err := s.store.Sessions().FindByID(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the session with session id [%s].", claims.SessionID)
	} else if err != nil {
		return nil, err
	}

	return &SessionGrant{SessionToken: networkToken, User: *user, Session: *session}, nil
}

// ListUsers returns matching users, or just their count when the page asks
// for one.
func (s *Service) ListUsers(ctx context.Context, search UserSearch, page Page, _ *dispatch.ApiContext) (any, error) {
	if page.CountOnly {
		return s.store.Users().Count(ctx, search)
	}
	return s.store.Users().List(ctx, search, page)
}

func (s *Service) GetUser(ctx context.Context, userID string, _ *dispatch.ApiContext) (*User, error) {
	if userID == "" {
		return nil, errors.New("Missing required parameter [UserID].")
	}
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *Service) RenameUser(ctx context.Context, userID, newName string, _ *dispatch.ApiContext) (bool, error) {
	if userID == "" {
		return false, errors.New("Missing required parameter [UserID].")
	}
	if newName == "" {
		return false, errors.New("Missing required parameter [NewName].")
	}
	affected, err := s.store.Users().SetName(ctx, userID, newName)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) SetUserGroups(ctx context.Context, userID, groups string, _ *dispatch.ApiContext) (bool, error) {
	if userID == "" {
		return false, errors.New("Missing required argument [UserID].")
	}
	affected, err := s.store.Users().SetGroups(ctx, userID, groups)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) SetUserMetadata(ctx context.Context, userID string, metadata map[string]any, _ *dispatch.ApiContext) (bool, error) {
	if userID == "" {
		return false, errors.New("Missing required argument [UserID].")
	}
	affected, err := s.store.Users().SetMetadata(ctx, userID, metadata)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

// LockUser locks the user and, when lockSessions is set, every session the
// user owns, atomically. The bulk lock must hit exactly the number of
// sessions counted inside the same transaction.
func (s *Service) LockUser(ctx context.Context, userID string, lockSessions bool, _ *dispatch.ApiContext) (bool, error) {
	if userID == "" {
		return false, errors.New("Missing required argument [UserID].")
	}
	lockedAt := s.now()
	err := s.store.WithTransaction(ctx, func(tx Store) error {
		affected, err := tx.Users().SetLockedAt(ctx, userID, &lockedAt)
		if err != nil {
			return err
		}
		if err := assertAffected("update", affected, 1); err != nil {
			return err
		}
		if !lockSessions {
			return nil
		}
		count, err := tx.Sessions().Count(ctx, SessionSearch{UserID: userID, IncludeClosed: true})
		if err != nil {
			return err
		}
		affected, err = tx.Sessions().SetLockedAtForUser(ctx, userID, &lockedAt)
		if err != nil {
			return err
		}
		return assertAffected("update", affected, count)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) UnlockUser(ctx context.Context, userID string, _ *dispatch.ApiContext) (bool, error) {
	if userID == "" {
		return false, errors.New("Missing required argument [UserID].")
	}
	affected, err := s.store.Users().SetLockedAt(ctx, userID, nil)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

// ListSessions returns matching sessions, or just their count when the page
// asks for one. Closed sessions are excluded unless requested.
func (s *Service) ListSessions(ctx context.Context, search SessionSearch, page Page, _ *dispatch.ApiContext) (any, error) {
	if page.CountOnly {
		return s.store.Sessions().Count(ctx, search)
	}
	return s.store.Sessions().List(ctx, search, page)
}

func (s *Service) GetSession(ctx context.Context, sessionID string, _ *dispatch.ApiContext) (*Session, error) {
	if sessionID == "" {
		return nil, errors.New("Missing required parameter [SessionID].")
	}
	session, err := s.store.Sessions().FindByID(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return session, err
}

func (s *Service) SetSessionMetadata(ctx context.Context, sessionID string, metadata map[string]any, _ *dispatch.ApiContext) (bool, error) {
	if sessionID == "" {
		return false, errors.New("Missing required argument [SessionID].")
	}
	affected, err := s.store.Sessions().SetMetadata(ctx, sessionID, metadata)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) LockSession(ctx context.Context, sessionID string, _ *dispatch.ApiContext) (bool, error) {
	if sessionID == "" {
		return false, errors.New("Missing required argument [SessionID].")
	}
	lockedAt := s.now()
	affected, err := s.store.Sessions().SetLockedAt(ctx, sessionID, &lockedAt)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) UnlockSession(ctx context.Context, sessionID string, _ *dispatch.ApiContext) (bool, error) {
	if sessionID == "" {
		return false, errors.New("Missing required argument [SessionID].")
	}
	affected, err := s.store.Sessions().SetLockedAt(ctx, sessionID, nil)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) CloseSession(ctx context.Context, sessionID string, _ *dispatch.ApiContext) (bool, error) {
	if sessionID == "" {
		return false, errors.New("Missing required argument [SessionID].")
	}
	closedAt := s.now()
	affected, err := s.store.Sessions().SetClosedAt(ctx, sessionID, &closedAt)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

// ReapSessions hard-deletes every session past its abandon deadline and
// returns the count removed. Safe to call repeatedly.
func (s *Service) ReapSessions(ctx context.Context, _ *dispatch.ApiContext) (int64, error) {
	count, err := s.store.Sessions().DeleteAbandoned(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("reaped abandoned sessions")
	}
	return count, nil
}

func (s *Service) ListApiKeys(ctx context.Context, userID string, actx *dispatch.ApiContext) ([]ApiKey, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("Missing required argument [UserID].")
	}
	return s.store.ApiKeys().ListForUser(ctx, userID)
}

// CreateApiKey generates a fresh public key and passkey pair, stores only
// the bcrypt hash, and returns the plaintext passkey this one time.
func (s *Service) CreateApiKey(ctx context.Context, userID, description string, expirationMS int64, actx *dispatch.ApiContext) (*ApiKeyGrant, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("Missing required parameter [UserID].")
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find the user with user id [%s].", userID)
	} else if err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("ApiKey for %s (%s)", user.UserName, user.UserEmail)
	}

	passkey := ids.Keylike("", 64)
	hash, err := bcrypt.GenerateFromPassword([]byte(passkey), bcryptCost)
	if err != nil {
		return nil, err
	}
	key := &ApiKey{
		ApiKeyID:    uuid.NewString(),
		UserID:      userID,
		ApiKey:      ids.Keylike("apikey", 16),
		PasskeyHash: string(hash),
		Description: description,
		CreatedAt:   s.now(),
	}
	if expirationMS > 0 {
		expiresAt := s.now().Add(time.Duration(expirationMS) * time.Millisecond)
		key.ExpiresAt = &expiresAt
	}
	if err := s.store.ApiKeys().Create(ctx, key); err != nil {
		return nil, errors.New("Failed to create apikey.")
	}

	s.logger.Info().Str("apikey_id", key.ApiKeyID).Str("user_id", userID).Msg("apikey created")
	return &ApiKeyGrant{ApiKeyID: key.ApiKeyID, ApiKey: key.ApiKey, Passkey: passkey}, nil
}

func (s *Service) DestroyApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required parameter [ApiKeyID].")
	}
	affected, err := s.store.ApiKeys().Delete(ctx, apikeyID)
	if err != nil {
		return false, err
	}
	if err := assertAffected("destroy", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (*ApiKey, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	if apikeyID == "" {
		return nil, errors.New("Missing required parameter [ApiKeyID].")
	}
	key, err := s.store.ApiKeys().FindByID(ctx, apikeyID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("Unable to find ApiKey with apikey id [%s].", apikeyID)
	}
	return key, err
}

func (s *Service) LockApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required argument [ApiKeyID].")
	}
	lockedAt := s.now()
	affected, err := s.store.ApiKeys().SetLockedAt(ctx, apikeyID, &lockedAt)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) UnlockApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required argument [ApiKeyID].")
	}
	affected, err := s.store.ApiKeys().SetLockedAt(ctx, apikeyID, nil)
	if err != nil {
		return false, err
	}
	if err := assertAffected("update", affected, 1); err != nil {
		return false, err
	}
	return true, nil
}

// GetMySession resolves the caller's own token.
func (s *Service) GetMySession(ctx context.Context, actx *dispatch.ApiContext) (*SessionGrant, error) {
	if err := requireApi(actx); err != nil {
		return nil, err
	}
	return s.LookupSession(ctx, actx.Authorization, actx)
}

func (s *Service) ListMyApiKeys(ctx context.Context, actx *dispatch.ApiContext) ([]ApiKey, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	return s.ListApiKeys(ctx, actx.User.UserID, actx)
}

func (s *Service) CreateMyApiKey(ctx context.Context, description string, expirationMS int64, actx *dispatch.ApiContext) (*ApiKeyGrant, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	return s.CreateApiKey(ctx, actx.User.UserID, description, expirationMS, actx)
}

// ownApiKey loads the key and enforces that the caller owns it. The action
// verb only shapes the refusal message.
func (s *Service) ownApiKey(ctx context.Context, apikeyID, action string, actx *dispatch.ApiContext) error {
	key, err := s.GetApiKey(ctx, apikeyID, actx)
	if err != nil {
		return err
	}
	if key.UserID != actx.User.UserID {
		return fmt.Errorf("You do not have permission to %s this ApiKey.", action)
	}
	return nil
}

func (s *Service) DestroyMyApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required parameter [ApiKeyID].")
	}
	if err := s.ownApiKey(ctx, apikeyID, "delete", actx); err != nil {
		return false, err
	}
	return s.DestroyApiKey(ctx, apikeyID, actx)
}

func (s *Service) GetMyApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (*ApiKey, error) {
	if err := requireUser(actx); err != nil {
		return nil, err
	}
	if apikeyID == "" {
		return nil, errors.New("Missing required parameter [ApiKeyID].")
	}
	if err := s.ownApiKey(ctx, apikeyID, "view", actx); err != nil {
		return nil, err
	}
	return s.GetApiKey(ctx, apikeyID, actx)
}

func (s *Service) LockMyApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required argument [ApiKeyID].")
	}
	if err := s.ownApiKey(ctx, apikeyID, "modify", actx); err != nil {
		return false, err
	}
	return s.LockApiKey(ctx, apikeyID, actx)
}

func (s *Service) UnlockMyApiKey(ctx context.Context, apikeyID string, actx *dispatch.ApiContext) (bool, error) {
	if err := requireUser(actx); err != nil {
		return false, err
	}
	if apikeyID == "" {
		return false, errors.New("Missing required argument [ApiKeyID].")
	}
	if err := s.ownApiKey(ctx, apikeyID, "modify", actx); err != nil {
		return false, err
	}
	return s.UnlockApiKey(ctx, apikeyID, actx)
}
