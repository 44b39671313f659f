// Package pg implements member.Store over PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gridnet.org/internal/member"
)

var _ member.Store = (*Store)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx so the per-entity
// stores serve transactional and plain views with the same code.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements member.Store using PostgreSQL.
type Store struct {
	db *sql.DB
	q  queryer
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() member.UserStore       { return &userStore{q: s.q} }
func (s *Store) Sessions() member.SessionStore { return &sessionStore{q: s.q} }
func (s *Store) ApiKeys() member.ApiKeyStore   { return &apiKeyStore{q: s.q} }

// WithTransaction runs fn against a store view bound to a single
// serializable transaction. fn returning an error rolls everything back.
func (s *Store) WithTransaction(ctx context.Context, fn func(member.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// User store ---------------------------------------------------------------

type userStore struct{ q queryer }

const userColumns = `user_id, authenticator_user_id, user_name, user_email, groups, metadata, created_at, updated_at, locked_at`

func scanUser(row interface{ Scan(...any) error }) (*member.User, error) {
	var (
		u        member.User
		metadata []byte
	)
	if err := row.Scan(&u.UserID, &u.AuthenticatorUserID, &u.UserName, &u.UserEmail,
		&u.Groups, &metadata, &u.CreatedAt, &u.UpdatedAt, &u.LockedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &u.Metadata)
	}
	return &u, nil
}

func (s *userStore) FindByID(ctx context.Context, userID string) (*member.User, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where user_id=$1`, userID)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*member.User, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+userColumns+` from users where user_email=$1`, email)
	return scanUser(row)
}

func userWhere(search member.UserSearch) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if search.UserName != "" {
		args = append(args, "%"+search.UserName+"%")
		clauses = append(clauses, fmt.Sprintf("user_name ilike $%d", len(args)))
	}
	if search.UserEmail != "" {
		args = append(args, "%"+search.UserEmail+"%")
		clauses = append(clauses, fmt.Sprintf("user_email ilike $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " where " + strings.Join(clauses, " and "), args
}

func (s *userStore) List(ctx context.Context, search member.UserSearch, page member.Page) ([]member.User, error) {
	where, args := userWhere(search)
	query := `select ` + userColumns + ` from users` + where + ` order by created_at desc`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" offset $%d", len(args))
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []member.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (s *userStore) Count(ctx context.Context, search member.UserSearch) (int64, error) {
	where, args := userWhere(search)
	var count int64
	err := s.q.QueryRowContext(ctx, `select count(*) from users`+where, args...).Scan(&count)
	return count, err
}

func (s *userStore) Create(ctx context.Context, u *member.User) error {
	meta, _ := json.Marshal(u.Metadata)
	_, err := s.q.ExecContext(ctx,
		`insert into users(user_id, authenticator_user_id, user_name, user_email, groups, metadata, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.UserID, u.AuthenticatorUserID, u.UserName, u.UserEmail, u.Groups, meta, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *userStore) SetName(ctx context.Context, userID, name string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update users set user_name=$2, updated_at=now() where user_id=$1`, userID, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *userStore) SetGroups(ctx context.Context, userID, groups string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update users set groups=$2, updated_at=now() where user_id=$1`, userID, groups)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *userStore) SetMetadata(ctx context.Context, userID string, metadata map[string]any) (int64, error) {
	meta, _ := json.Marshal(metadata)
	res, err := s.q.ExecContext(ctx,
		`update users set metadata=$2, updated_at=now() where user_id=$1`, userID, meta)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *userStore) SetLockedAt(ctx context.Context, userID string, at *time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update users set locked_at=$2, updated_at=now() where user_id=$1`, userID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Session store ------------------------------------------------------------

type sessionStore struct{ q queryer }

const sessionColumns = `session_id, user_id, apikey_id, authenticator_user_id, authenticator_session_id, created_at, updated_at, expires_at, abandon_at, closed_at, locked_at, metadata, ip_address`

func scanSession(row interface{ Scan(...any) error }) (*member.Session, error) {
	var (
		sess     member.Session
		metadata []byte
	)
	if err := row.Scan(&sess.SessionID, &sess.UserID, &sess.ApiKeyID,
		&sess.AuthenticatorUserID, &sess.AuthenticatorSessionID,
		&sess.CreatedAt, &sess.UpdatedAt, &sess.ExpiresAt, &sess.AbandonAt,
		&sess.ClosedAt, &sess.LockedAt, &metadata, &sess.IPAddress); err != nil {
		if err == sql.ErrNoRows {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &sess.Metadata)
	}
	return &sess, nil
}

func (s *sessionStore) FindByID(ctx context.Context, sessionID string) (*member.Session, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where session_id=$1`, sessionID)
	return scanSession(row)
}

func sessionWhere(search member.SessionSearch) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if search.UserID != "" {
		args = append(args, search.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !search.IncludeClosed {
		clauses = append(clauses, "closed_at is null")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " where " + strings.Join(clauses, " and "), args
}

func (s *sessionStore) List(ctx context.Context, search member.SessionSearch, page member.Page) ([]member.Session, error) {
	where, args := sessionWhere(search)
	query := `select ` + sessionColumns + ` from sessions` + where + ` order by created_at desc`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" offset $%d", len(args))
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []member.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *sess)
	}
	return res, rows.Err()
}

func (s *sessionStore) Count(ctx context.Context, search member.SessionSearch) (int64, error) {
	where, args := sessionWhere(search)
	var count int64
	err := s.q.QueryRowContext(ctx, `select count(*) from sessions`+where, args...).Scan(&count)
	return count, err
}

func (s *sessionStore) Create(ctx context.Context, sess *member.Session) error {
	meta, _ := json.Marshal(sess.Metadata)
	_, err := s.q.ExecContext(ctx,
		`insert into sessions(session_id, user_id, apikey_id, authenticator_user_id, authenticator_session_id,
		 created_at, updated_at, expires_at, abandon_at, metadata, ip_address)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sess.SessionID, sess.UserID, sess.ApiKeyID, sess.AuthenticatorUserID, sess.AuthenticatorSessionID,
		sess.CreatedAt, sess.UpdatedAt, sess.ExpiresAt, sess.AbandonAt, meta, sess.IPAddress,
	)
	return err
}

func (s *sessionStore) SetMetadata(ctx context.Context, sessionID string, metadata map[string]any) (int64, error) {
	meta, _ := json.Marshal(metadata)
	res, err := s.q.ExecContext(ctx,
		`update sessions set metadata=$2, updated_at=now() where session_id=$1`, sessionID, meta)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) SetLockedAt(ctx context.Context, sessionID string, at *time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update sessions set locked_at=$2, updated_at=now() where session_id=$1`, sessionID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) SetLockedAtForUser(ctx context.Context, userID string, at *time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update sessions set locked_at=$2, updated_at=now() where user_id=$1`, userID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) SetClosedAt(ctx context.Context, sessionID string, at *time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update sessions set closed_at=$2, updated_at=now() where session_id=$1`, sessionID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`delete from sessions where abandon_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ApiKey store -------------------------------------------------------------

type apiKeyStore struct{ q queryer }

const apiKeyColumns = `apikey_id, user_id, apikey, passkey_hash, description, created_at, updated_at, expires_at, locked_at, closed_at`

func scanApiKey(row interface{ Scan(...any) error }) (*member.ApiKey, error) {
	var key member.ApiKey
	if err := row.Scan(&key.ApiKeyID, &key.UserID, &key.ApiKey, &key.PasskeyHash,
		&key.Description, &key.CreatedAt, &key.UpdatedAt,
		&key.ExpiresAt, &key.LockedAt, &key.ClosedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, member.ErrNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (s *apiKeyStore) FindByID(ctx context.Context, apikeyID string) (*member.ApiKey, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+apiKeyColumns+` from apikeys where apikey_id=$1`, apikeyID)
	return scanApiKey(row)
}

func (s *apiKeyStore) FindByPublicKey(ctx context.Context, apikey string) (*member.ApiKey, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+apiKeyColumns+` from apikeys where apikey=$1`, apikey)
	return scanApiKey(row)
}

func (s *apiKeyStore) ListForUser(ctx context.Context, userID string) ([]member.ApiKey, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+apiKeyColumns+` from apikeys where user_id=$1 order by created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []member.ApiKey
	for rows.Next() {
		key, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *key)
	}
	return res, rows.Err()
}

func (s *apiKeyStore) Create(ctx context.Context, key *member.ApiKey) error {
	_, err := s.q.ExecContext(ctx,
		`insert into apikeys(apikey_id, user_id, apikey, passkey_hash, description, created_at, updated_at, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		key.ApiKeyID, key.UserID, key.ApiKey, key.PasskeyHash, key.Description,
		key.CreatedAt, key.UpdatedAt, key.ExpiresAt,
	)
	return err
}

func (s *apiKeyStore) SetLockedAt(ctx context.Context, apikeyID string, at *time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`update apikeys set locked_at=$2, updated_at=now() where apikey_id=$1`, apikeyID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *apiKeyStore) Delete(ctx context.Context, apikeyID string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`delete from apikeys where apikey_id=$1`, apikeyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
