package auth

import "time"

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy decides when repeated login failures suspend an account.
// The counter mutations themselves are atomic store operations; the policy
// only supplies the threshold, the lock window, and the pure lock check.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the policy used when nothing is configured.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: defaultLockoutThreshold, Duration: defaultLockoutDuration}
}

// IsLocked reports whether the account is inside an active lock window.
func (p LockoutPolicy) IsLocked(u *User, now time.Time) bool {
	return u.Security.LockUntil != nil && now.Before(*u.Security.LockUntil)
}
