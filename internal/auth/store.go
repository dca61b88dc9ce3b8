package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// UserStore describes persistence operations the service needs for user
// records. Both login-attempt operations must be applied atomically against
// the backing store so concurrent logins never under-count or lose a reset.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// RecordLoginFailure increments the attempt counter in a single
	// statement and, when the new count reaches threshold, sets the lock
	// window. Returns the new count and whether this call locked the account.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (attempts int, locked bool, err error)

	// RecordLoginSuccess resets the counter, clears any lock, and updates
	// login metadata in a single statement.
	RecordLoginSuccess(ctx context.Context, id, ip string, at time.Time) error
}

// SessionStore manages session rows keyed by the refresh-token hash. Rows are
// never deleted; revocation flips status and records a reason.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)

	// Revoke marks the session revoked. Revoking an already-revoked session
	// is a no-op, not an error.
	Revoke(ctx context.Context, id, reason string) error

	// RevokeAllForUser revokes every active session owned by the user and
	// returns how many were affected.
	RevokeAllForUser(ctx context.Context, userID, reason string) (int, error)

	// Touch updates last_accessed_at on successful refresh.
	Touch(ctx context.Context, id string, at time.Time) error
}

// HashToken derives the storage key for a refresh token. SHA-256 is enough
// here: the token already has high entropy, unlike a password, so no adaptive
// cost function is needed. A leaked row never yields a usable token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
