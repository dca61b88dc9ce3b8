package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGUserStoreFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := now.Add(30 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "user_type", "status",
		"login_attempts", "lock_until", "last_login_at", "login_count",
		"last_login_ip", "created_at", "updated_at",
	}).AddRow("u1", "a@b.com", "hash", "Test User", "student", "active",
		3, lock, now, 7, "203.0.113.1", now, now)

	mock.ExpectQuery("from users where email=").
		WithArgs("a@b.com").
		WillReturnRows(rows)

	store := NewPGUserStore(db)
	u, err := store.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != "u1" || u.Security.LoginAttempts != 3 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Security.LockUntil == nil || !u.Security.LockUntil.Equal(lock) {
		t.Fatalf("lock_until not scanned: %+v", u.Security)
	}
	if u.Metadata.LoginCount != 7 || u.Metadata.LastLoginIP != "203.0.113.1" {
		t.Fatalf("metadata not scanned: %+v", u.Metadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from users where email=").
		WithArgs("missing@b.com").
		WillReturnError(sql.ErrNoRows)

	store := NewPGUserStore(db)
	if _, err := store.FindByEmail(context.Background(), "missing@b.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGUserStoreRecordLoginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	lockUntil := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	mock.ExpectQuery("update users set").
		WithArgs("u1", 5, lockUntil).
		WillReturnRows(sqlmock.NewRows([]string{"login_attempts"}).AddRow(5))

	store := NewPGUserStore(db)
	attempts, locked, err := store.RecordLoginFailure(context.Background(), "u1", 5, lockUntil)
	if err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	if attempts != 5 || !locked {
		t.Fatalf("expected locking increment, got attempts=%d locked=%v", attempts, locked)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUserStoreRecordLoginSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("update users set").
		WithArgs("u1", at, "203.0.113.1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGUserStore(db)
	if err := store.RecordLoginSuccess(context.Background(), "u1", "203.0.113.1", at); err != nil {
		t.Fatalf("RecordLoginSuccess: %v", err)
	}

	mock.ExpectExec("update users set").
		WithArgs("missing", at, "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.RecordLoginSuccess(context.Background(), "missing", "", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestPGUserStoreCreateUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	store := NewPGUserStore(db)
	u := &User{Email: "a@b.com", PasswordHash: "hash", UserType: "student", Status: UserActive}
	if err := store.Create(context.Background(), u); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPGSessionStoreCreateUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into sessions").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	store := NewPGSessionStore(db)
	sess := &Session{UserID: "u1", RefreshTokenHash: "abc123", Status: SessionActive}
	if err := store.Create(context.Background(), sess); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPGSessionStoreCreateAndFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := &Session{
		UserID:                "u1",
		RefreshTokenHash:      "abc123",
		Status:                SessionActive,
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
		IPAddress:             "203.0.113.1",
		UserAgent:             "curl/8.4.0",
		DeviceType:            DeviceUnknown,
		CreatedAt:             now,
	}

	mock.ExpectExec("insert into sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGSessionStore(db)
	if err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("session id not assigned")
	}

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "refresh_token_hash", "status",
		"access_expires_at", "refresh_expires_at", "ip_address", "user_agent",
		"device_type", "revoked_reason", "created_at", "last_accessed_at",
	}).AddRow(sess.ID, "u1", "abc123", "active",
		sess.AccessTokenExpiresAt, sess.RefreshTokenExpiresAt,
		"203.0.113.1", "curl/8.4.0", "unknown", nil, now, now)

	mock.ExpectQuery("from sessions where refresh_token_hash=").
		WithArgs("abc123").
		WillReturnRows(rows)

	found, err := store.FindByTokenHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FindByTokenHash: %v", err)
	}
	if found.UserID != "u1" || found.Status != SessionActive {
		t.Fatalf("unexpected session: %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreRevokeOnlyActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// The status guard makes revocation idempotent: an already-revoked row
	// matches zero rows and keeps its original reason.
	mock.ExpectExec("update sessions set status=").
		WithArgs("s1", string(SessionRevoked), "User logout", string(SessionActive)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGSessionStore(db)
	if err := store.Revoke(context.Background(), "s1", "User logout"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionStoreRevokeAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update sessions set status=").
		WithArgs("u1", string(SessionRevoked), "User logout (all sessions)", string(SessionActive)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewPGSessionStore(db)
	n, err := store.RevokeAllForUser(context.Background(), "u1", "User logout (all sessions)")
	if err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
}
