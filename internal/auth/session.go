// Package auth holds the station's operator session. The station never
// validates token signatures (that is the backend's job); it only parses the
// claims to know which role's reconciler drives the local view and to detect
// expired sessions before the backend rejects them.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no active session")

// Claims mirror the backend's token payload.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the station's current operator token and its parsed claims.
// Safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *Claims
}

func NewSession() *Session {
	return &Session{}
}

// SetToken installs a token received from the backend's login endpoint.
func (s *Session) SetToken(token string) error {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
	return nil
}

// Token returns the raw bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role returns the operator's role claim, or "" when logged out.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Role
}

// Claims returns the parsed claims.
func (s *Session) Claims() (*Claims, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return nil, ErrNoSession
	}
	return s.claims, nil
}

// Expired reports whether the token's exp claim has passed.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return false
	}
	return now.After(s.claims.ExpiresAt.Time)
}

// Clear drops the session. Called on a 401 from the backend.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = nil
}
