package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"learnware.org/internal/obs"
)

// Service orchestrates registration, login, logout, and refresh. It holds no
// durable state of its own; everything lives in the user and session stores,
// so any number of requests may run concurrently.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   *TokenIssuer
	lockout  LockoutPolicy
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
			s.tokens.now = fn
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.tokens.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokens.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokens.refreshTTL = ttl
		}
		return nil
	}
}

// WithLockoutThreshold configures how many failed logins lock an account.
func WithLockoutThreshold(n int) ServiceOption {
	return func(s *Service) error {
		if n > 0 {
			s.lockout.Threshold = n
		}
		return nil
	}
}

// WithLockoutDuration configures how long a locked account stays locked.
func WithLockoutDuration(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.lockout.Duration = d
		}
		return nil
	}
}

// NewService constructs the auth service. The signing secret must be
// non-empty; everything else has defaults.
func NewService(users UserStore, sessions SessionStore, secret []byte, opts ...ServiceOption) (*Service, error) {
	tokens, err := NewTokenIssuer(secret)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		lockout:  DefaultLockoutPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	UserType string
}

// Register creates a new active account. Duplicate emails (any casing) fail
// with a Conflict error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Projection, error) {
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return Projection{}, badRequest(err.Error())
	}
	if err := ValidatePassword(in.Password); err != nil {
		return Projection{}, badRequest(err.Error())
	}
	userType := strings.TrimSpace(in.UserType)
	if userType == "" {
		userType = DefaultUserType
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Projection{}, conflict("Email is already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return Projection{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Projection{}, err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		UserType:     userType,
		Status:       UserActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Projection{}, conflict("Email is already registered")
		}
		return Projection{}, err
	}
	return user.Project(), nil
}

// LoginResult is returned on successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         Projection
}

// Login verifies credentials and opens a new session. The lock check runs
// before the password comparison so a locked account never reaches bcrypt.
// The generic "Invalid email or password" is used for unknown emails and
// wrong passwords alike, including the failure that trips the lock; only a
// subsequent attempt against the already-locked account sees the distinct
// locked message.
func (s *Service) Login(ctx context.Context, email, password string, meta SessionMeta) (LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, badRequest("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObserveLogin("failure")
			return LoginResult{}, unauthorized("Invalid email or password")
		}
		return LoginResult{}, err
	}

	if user.Status != UserActive {
		obs.ObserveLogin("inactive")
		return LoginResult{}, forbidden("Account is not active")
	}

	now := s.now().UTC()
	if s.lockout.IsLocked(user, now) {
		obs.ObserveLogin("locked")
		return LoginResult{}, forbidden("Account is temporarily locked")
	}

	if !CheckPassword(user.PasswordHash, password) {
		lockUntil := now.Add(s.lockout.Duration)
		_, locked, err := s.users.RecordLoginFailure(ctx, user.ID, s.lockout.Threshold, lockUntil)
		if err != nil {
			// A lost increment would weaken brute-force protection, so the
			// store failure surfaces instead of the generic credential error.
			return LoginResult{}, err
		}
		if locked {
			obs.ObserveLockout()
		}
		obs.ObserveLogin("failure")
		return LoginResult{}, unauthorized("Invalid email or password")
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, meta.IPAddress, now); err != nil {
		return LoginResult{}, err
	}

	accessToken, accessExp, err := s.tokens.IssueAccess(user)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, _, refreshExp, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return LoginResult{}, err
	}

	session := &Session{
		UserID:                user.ID,
		RefreshTokenHash:      HashToken(refreshToken),
		Status:                SessionActive,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		IPAddress:             meta.IPAddress,
		UserAgent:             meta.UserAgent,
		DeviceType:            ClassifyDevice(meta.UserAgent),
		CreatedAt:             now,
		LastAccessedAt:        now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, err
	}

	obs.ObserveLogin("success")
	return LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.accessTTL.Seconds()),
		User:         user.Project(),
	}, nil
}

// Logout revokes the session behind the refresh token. An unknown token
// succeeds silently so callers learn nothing about whether it ever existed.
func (s *Service) Logout(ctx context.Context, userID, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return badRequest("Refresh token is required")
	}
	session, err := s.sessions.FindByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if session.UserID != userID {
		return forbidden("Invalid session")
	}
	if err := s.sessions.Revoke(ctx, session.ID, "User logout"); err != nil {
		return err
	}
	obs.ObserveRevocation("user_logout")
	return nil
}

// LogoutAll revokes every active session the user owns and returns how many
// were revoked.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.RevokeAllForUser(ctx, userID, "User logout (all sessions)")
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		obs.ObserveRevocation("user_logout_all")
	}
	return n, nil
}

// RefreshResult is returned on successful refresh.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   int64
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is not rotated; the session stays valid until its own expiry, logout,
// or revocation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{}, badRequest("Refresh token is required")
	}
	if _, err := s.tokens.VerifyRefresh(refreshToken); err != nil {
		return RefreshResult{}, unauthorized("Invalid refresh token")
	}

	session, err := s.sessions.FindByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RefreshResult{}, unauthorized("Invalid refresh token")
		}
		return RefreshResult{}, err
	}
	if session.Status != SessionActive {
		return RefreshResult{}, unauthorized("Session is no longer valid")
	}

	user, err := s.users.Find(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.sessions.Revoke(ctx, session.ID, "Owning user missing")
			obs.ObserveRevocation("user_missing")
			return RefreshResult{}, unauthorized("Session is no longer valid")
		}
		return RefreshResult{}, err
	}
	if user.Status != UserActive {
		_ = s.sessions.Revoke(ctx, session.ID, "Owning user not active")
		obs.ObserveRevocation("user_inactive")
		return RefreshResult{}, unauthorized("Session is no longer valid")
	}

	accessToken, _, err := s.tokens.IssueAccess(user)
	if err != nil {
		return RefreshResult{}, err
	}
	if err := s.sessions.Touch(ctx, session.ID, s.now().UTC()); err != nil {
		return RefreshResult{}, err
	}

	obs.ObserveRefresh()
	return RefreshResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokens.accessTTL.Seconds()),
	}, nil
}

// VerifyAccessToken validates an access token for request middleware. Pure,
// no store round-trip.
func (s *Service) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return nil, unauthorized("Invalid or expired token")
	}
	return claims, nil
}

// CurrentUser loads the projection for an authenticated user id.
func (s *Service) CurrentUser(ctx context.Context, userID string) (Projection, error) {
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Projection{}, unauthorized("Invalid or expired token")
		}
		return Projection{}, err
	}
	return user.Project(), nil
}
