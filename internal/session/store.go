package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// Store is the process-wide session registry and the only component that
// constructs Sessions. It is injected into the HTTP layer rather than held
// as package state. Sessions live for the process lifetime; there is no
// expiry or eviction.
type Store struct {
	devSessionID string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Store.
type Option func(*Store)

// WithDevSessionID pins every new session to a fixed id. Needed in
// development to keep a stable session across the external OAuth redirect.
func WithDevSessionID(id string) Option {
	return func(s *Store) { s.devSessionID = id }
}

func NewStore(opts ...Option) *Store {
	s := &Store{sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession generates a fresh unique id, registers a new session under
// it, and returns the session.
func (s *Store) StartSession() *Session {
	sess := newSession(s.generateID())

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	return sess
}

// GetSession returns the session registered under id, or ErrSessionNotFound.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) generateID() string {
	if s.devSessionID != "" {
		return s.devSessionID
	}
	return randomToken()
}

// randomToken returns a 16-byte cryptographically random URL-safe token.
func randomToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// NewHandshakeToken returns a random token suitable for the OAuth state and
// nonce parameters.
func NewHandshakeToken() string {
	return randomToken()
}
