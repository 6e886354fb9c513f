// Package client implements the browser-side half of the share gate: a local
// proof cache, the gate that decides between admitting and redirecting to the
// OTP flow, and a small API client for the /otp endpoint.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/share-gate-api/internal/domain"
)

// AccessProof is client-held evidence of a successful verification. It is a
// UX convenience only; the grant token inside it is what the server actually
// checks when the protected resource is fetched.
type AccessProof struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProofStore holds serialized proofs keyed by share tuple. Values are opaque
// strings, like browser sessionStorage entries: the gate treats anything it
// cannot parse as absent.
type ProofStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// proofKey mirrors the storage key format of the original UI.
func proofKey(shareType domain.ShareType, shareID string) string {
	return fmt.Sprintf("share_access_%s_%s", shareType, shareID)
}

// SessionStore is an in-memory ProofStore scoped to the process, matching
// sessionStorage semantics: nothing survives a restart.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]string)}
}

func (s *SessionStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
