package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/model"
)

func testService(t *testing.T, accessTTL time.Duration) *Service {
	t.Helper()
	svc, err := NewService(config.JWTConfig{
		Secret:          "test-secret",
		Algorithm:       "HS256",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
		Issuer:          "Auth Service",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testUser() *model.User {
	return &model.User{ID: 42, Email: "a@b.c", Role: model.RoleUser, IsActive: true}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	svc := testService(t, time.Minute)

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(tok, TypeAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "a@b.c" {
		t.Errorf("email: got %q", claims.Email)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("user id: got %d, err %v", id, err)
	}
}

func TestRefreshTokenCannotBeUsedAsAccess(t *testing.T) {
	svc := testService(t, time.Minute)

	tok, err := svc.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok, TypeAccess); !errors.Is(err, ErrWrongTokenUse) {
		t.Errorf("expected ErrWrongTokenUse, got %v", err)
	}
	if _, err := svc.Verify(tok, TypeRefresh); err != nil {
		t.Errorf("refresh verification failed: %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := testService(t, -time.Minute)

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := testService(t, time.Minute)

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := svc.Verify(strings.Join(parts, "."), TypeAccess); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	svc := testService(t, time.Minute)
	other, err := NewService(config.JWTConfig{
		Secret: "other-secret", Algorithm: "HS256",
		AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour,
		Issuer: "Auth Service",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(tok, TypeAccess); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}
