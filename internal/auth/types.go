package auth

import "time"

// UserStatus describes whether an account may authenticate.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserInactive  UserStatus = "inactive"
)

// User represents an account holder. PasswordHash and the Security block are
// never returned to callers; use Projection.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	UserType     string
	Status       UserStatus
	Security     UserSecurity
	Metadata     LoginMetadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSecurity carries the lockout state. LoginAttempts only grows on a
// failed password check against an otherwise-active, unlocked account and is
// reset atomically on success.
type UserSecurity struct {
	LoginAttempts int
	LockUntil     *time.Time
}

// LoginMetadata is informational bookkeeping updated on successful login.
type LoginMetadata struct {
	LastLoginAt *time.Time
	LoginCount  int
	LastLoginIP string
}

// Projection is the caller-visible view of a user.
type Projection struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	UserType  string     `json:"user_type"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Project strips credentials and security state from a user record.
func (u *User) Project() Projection {
	return Projection{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		UserType:  u.UserType,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

// SessionStatus describes the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionRevoked SessionStatus = "revoked"
	SessionExpired SessionStatus = "expired"
)

// Session is one logical login. The raw refresh token is never stored; only
// its SHA-256 hash. Revoked rows are kept for the audit trail.
type Session struct {
	ID                    string
	UserID                string
	RefreshTokenHash      string
	Status                SessionStatus
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	IPAddress             string
	UserAgent             string
	DeviceType            DeviceType
	RevokedReason         string
	CreatedAt             time.Time
	LastAccessedAt        time.Time
}

// SessionMeta captures request attributes at session creation. Immutable for
// the session lifetime.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}
