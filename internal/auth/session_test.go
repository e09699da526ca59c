package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khanabook/pos-station/internal/enum"
)

func signedToken(t *testing.T, role string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		Username: "ravi",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSessionSetToken(t *testing.T) {
	s := NewSession()
	tok := signedToken(t, enum.RoleKitchen, time.Now().Add(time.Hour))

	if err := s.SetToken(tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if s.Token() != tok {
		t.Error("raw token not stored")
	}
	if s.Role() != enum.RoleKitchen {
		t.Errorf("role = %q, want KITCHEN", s.Role())
	}

	claims, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims.Username != "ravi" {
		t.Errorf("username = %q, want ravi", claims.Username)
	}
}

func TestSessionRejectsGarbage(t *testing.T) {
	s := NewSession()
	if err := s.SetToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if s.Token() != "" {
		t.Error("failed SetToken must not install a token")
	}
}

func TestSessionExpired(t *testing.T) {
	s := NewSession()
	if s.Expired(time.Now()) {
		t.Error("empty session must not report expired")
	}

	if err := s.SetToken(signedToken(t, enum.RoleCounter, time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if !s.Expired(time.Now()) {
		t.Error("token past exp must report expired")
	}
}

func TestSessionClear(t *testing.T) {
	s := NewSession()
	if err := s.SetToken(signedToken(t, enum.RoleWaiter, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	s.Clear()

	if s.Token() != "" || s.Role() != "" {
		t.Error("Clear must drop token and claims")
	}
	if _, err := s.Claims(); err != ErrNoSession {
		t.Errorf("Claims after Clear = %v, want ErrNoSession", err)
	}
}
