package auth

import (
	"errors"
	"testing"
	"time"
)

func testIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer([]byte("test-secret"))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issuer.now = func() time.Time { return *now }
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, &now)
	user := &User{ID: "user-1", Email: "a@b.com", UserType: "student"}

	token, exp, err := issuer.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.Equal(now.Add(defaultAccessTTL)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}

	claims, err := issuer.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@b.com" || claims.UserType != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("missing jti")
	}
}

func TestRefreshTokenCarriesJTI(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, &now)
	user := &User{ID: "user-1"}

	token, jti, exp, err := issuer.IssueRefresh(user)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if !exp.Equal(now.Add(defaultRefreshTTL)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}
	claims, err := issuer.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.ID != jti {
		t.Fatalf("jti mismatch: %s != %s", claims.ID, jti)
	}
}

func TestVerifyDistinguishesFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, &now)
	user := &User{ID: "user-1", Email: "a@b.com"}

	token, _, err := issuer.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	now = now.Add(defaultAccessTTL + time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	now = now.Add(-defaultAccessTTL - time.Minute)

	other := testIssuer(t, &now)
	other.secret = []byte("different-secret")
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}

	if _, err := issuer.Verify("not.a.jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestVerifyAccessRejectsWrongType(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := testIssuer(t, &now)
	user := &User{ID: "user-1"}

	refresh, _, _, err := issuer.IssueRefresh(user)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := issuer.VerifyAccess(refresh); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for refresh token, got %v", err)
	}

	access, _, err := issuer.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := issuer.VerifyRefresh(access); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for access token, got %v", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
