package auth

import (
	"context"
	"sync"
	"time"

	"learnware.org/internal/ids"
)

var (
	_ UserStore    = (*MemoryUserStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
)

// MemoryUserStore is an in-memory UserStore used when no database DSN is
// configured and by tests. All operations hold a single mutex so the
// login-attempt updates keep their atomicity.
type MemoryUserStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryUserStore) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return 0, false, ErrNotFound
	}
	u.Security.LoginAttempts++
	locked := u.Security.LoginAttempts >= threshold
	if locked {
		t := lockUntil
		u.Security.LockUntil = &t
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Security.LoginAttempts, locked, nil
}

func (s *MemoryUserStore) RecordLoginSuccess(ctx context.Context, id, ip string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Security.LoginAttempts = 0
	u.Security.LockUntil = nil
	t := at
	u.Metadata.LastLoginAt = &t
	u.Metadata.LoginCount++
	u.Metadata.LastLoginIP = ip
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// MemorySessionStore is an in-memory SessionStore keyed by token hash.
type MemorySessionStore struct {
	mu     sync.Mutex
	byHash map[string]*Session
	byID   map[string]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byHash: make(map[string]*Session),
		byID:   make(map[string]*Session),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[sess.RefreshTokenHash]; ok {
		return ErrAlreadyExists
	}
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	if sess.LastAccessedAt.IsZero() {
		sess.LastAccessedAt = sess.CreatedAt
	}
	cp := *sess
	s.byHash[sess.RefreshTokenHash] = &cp
	s.byID[sess.ID] = &cp
	return nil
}

func (s *MemorySessionStore) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemorySessionStore) Revoke(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil
	}
	if sess.Status != SessionActive {
		return nil
	}
	sess.Status = SessionRevoked
	sess.RevokedReason = reason
	return nil
}

func (s *MemorySessionStore) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.byID {
		if sess.UserID == userID && sess.Status == SessionActive {
			sess.Status = SessionRevoked
			sess.RevokedReason = reason
			n++
		}
	}
	return n, nil
}

func (s *MemorySessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	sess.LastAccessedAt = at
	return nil
}
