package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"learnware.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

var (
	_ UserStore    = (*PGUserStore)(nil)
	_ SessionStore = (*PGSessionStore)(nil)
)

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

const userColumns = `id, email, password_hash, full_name, user_type, status,
	login_attempts, lock_until, last_login_at, login_count, last_login_ip,
	created_at, updated_at`

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, full_name, user_type, status)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.UserType, u.Status,
	)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGUserStore) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	// Single-statement increment so two concurrent failures never
	// under-count. The lock window is set in the same statement the moment
	// the counter reaches the threshold.
	row := s.db.QueryRowContext(ctx,
		`update users set
			login_attempts = login_attempts + 1,
			lock_until = case when login_attempts + 1 >= $2 then $3 else lock_until end,
			updated_at = now()
		 where id = $1
		 returning login_attempts`,
		id, threshold, lockUntil,
	)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, ErrNotFound
		}
		return 0, false, err
	}
	return attempts, attempts >= threshold, nil
}

func (s *PGUserStore) RecordLoginSuccess(ctx context.Context, id, ip string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set
			login_attempts = 0,
			lock_until = null,
			last_login_at = $2,
			login_count = login_count + 1,
			last_login_ip = $3,
			updated_at = now()
		 where id = $1`,
		id, at, ip,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u           User
		lockUntil   sql.NullTime
		lastLoginAt sql.NullTime
		lastLoginIP sql.NullString
		fullName    sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &fullName, &u.UserType, &u.Status,
		&u.Security.LoginAttempts, &lockUntil,
		&lastLoginAt, &u.Metadata.LoginCount, &lastLoginIP,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.FullName = fullName.String
	if lockUntil.Valid {
		t := lockUntil.Time
		u.Security.LockUntil = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.Metadata.LastLoginAt = &t
	}
	u.Metadata.LastLoginIP = lastLoginIP.String
	return &u, nil
}

// PGSessionStore implements SessionStore using PostgreSQL. The
// refresh_token_hash column carries a unique index.
type PGSessionStore struct {
	db *sql.DB
}

func NewPGSessionStore(db *sql.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, status,
	access_expires_at, refresh_expires_at, ip_address, user_agent, device_type,
	revoked_reason, created_at, last_accessed_at`

func (s *PGSessionStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, user_id, refresh_token_hash, status,
			access_expires_at, refresh_expires_at, ip_address, user_agent,
			device_type, created_at, last_accessed_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`,
		sess.ID, sess.UserID, sess.RefreshTokenHash, sess.Status,
		sess.AccessTokenExpiresAt, sess.RefreshTokenExpiresAt,
		sess.IPAddress, sess.UserAgent, sess.DeviceType, sess.CreatedAt,
	)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGSessionStore) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where refresh_token_hash=$1`, hash)
	var (
		sess          Session
		revokedReason sql.NullString
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.RefreshTokenHash, &sess.Status,
		&sess.AccessTokenExpiresAt, &sess.RefreshTokenExpiresAt,
		&sess.IPAddress, &sess.UserAgent, &sess.DeviceType,
		&revokedReason, &sess.CreatedAt, &sess.LastAccessedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.RevokedReason = revokedReason.String
	return &sess, nil
}

func (s *PGSessionStore) Revoke(ctx context.Context, id, reason string) error {
	// Idempotent: an already-revoked row is left untouched so the original
	// reason survives for the audit trail.
	_, err := s.db.ExecContext(ctx,
		`update sessions set status=$2, revoked_reason=$3
		 where id=$1 and status=$4`,
		id, SessionRevoked, reason, SessionActive,
	)
	return err
}

func (s *PGSessionStore) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`update sessions set status=$2, revoked_reason=$3
		 where user_id=$1 and status=$4`,
		userID, SessionRevoked, reason, SessionActive,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PGSessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set last_accessed_at=$2 where id=$1`, id, at)
	return err
}
