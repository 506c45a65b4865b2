// Package identity supplies the current user's id to the sync layer.
package identity

import "sync"

// Provider returns the signed-in user's id, or nil when nobody is signed in.
// A nil id means unscoped reads and unowned writes.
type Provider interface {
	UserID() *string
}

// Anonymous is a Provider with no user.
type Anonymous struct{}

// UserID implements Provider.
func (Anonymous) UserID() *string { return nil }

// Static is a Provider whose user can be swapped at runtime.
type Static struct {
	mu     sync.RWMutex
	userID string
}

// NewStatic creates a provider for userID. An empty userID behaves like Anonymous.
func NewStatic(userID string) *Static {
	return &Static{userID: userID}
}

// UserID implements Provider. Each call returns a fresh pointer.
func (s *Static) UserID() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return nil
	}
	uid := s.userID
	return &uid
}

// Set replaces the current user. Pass "" to sign out.
func (s *Static) Set(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}
