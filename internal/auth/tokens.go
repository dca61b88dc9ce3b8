package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "learnware"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// TokenAccess and TokenRefresh are the values of the token_type claim.
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Verification failures. Callers usually only need "valid or not"; the split
// exists for diagnostics and logging.
var (
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenSignature = errors.New("auth: token signature invalid")
	ErrTokenMalformed = errors.New("auth: token malformed")
)

// Claims are the JWT claims issued by this service. Access tokens carry email
// and user type denormalized so authorization checks need no store round-trip.
type Claims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email,omitempty"`
	UserType  string `json:"user_type,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies HS256-signed access and refresh tokens.
// The signing secret is process-wide configuration; rotating it invalidates
// all outstanding tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. The secret must be non-empty.
func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	return &TokenIssuer{
		secret:     secret,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// IssueAccess signs a short-lived access token for the user.
func (t *TokenIssuer) IssueAccess(u *User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.accessTTL)
	claims := Claims{
		TokenType: TokenAccess,
		Email:     u.Email,
		UserType:  u.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a long-lived refresh token and returns its jti alongside.
func (t *TokenIssuer) IssueRefresh(u *User) (token, jti string, expiresAt time.Time, err error) {
	now := t.now().UTC()
	exp := now.Add(t.refreshTTL)
	jti = uuid.NewString()
	claims := Claims{
		TokenType: TokenRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, exp, nil
}

// Verify checks signature and expiry and returns the claims. Pure, no I/O.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignature
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyAccess verifies the token and requires token_type=access.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenAccess {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefresh verifies the token and requires token_type=refresh.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenRefresh {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
