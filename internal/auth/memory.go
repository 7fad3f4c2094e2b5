package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory CredentialStore for tests and single-instance
// development. For anything else, use PGStore.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Credential
	byEmail map[string]string
}

var _ CredentialStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Credential),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Find(ctx context.Context, id string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *cred
	return &clone, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *MemoryStore) Create(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(cred.Email))
	if _, exists := s.byEmail[email]; exists {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	cred.Email = email
	cred.CreatedAt = now
	cred.UpdatedAt = now
	clone := *cred
	s.byID[cred.ID] = &clone
	s.byEmail[email] = cred.ID
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[cred.ID]
	if !ok {
		return ErrNotFound
	}
	existing.PasswordHash = cred.PasswordHash
	existing.LockoutState = cred.LockoutState
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryRevocations is an in-memory revocation oracle and revoker, used in
// tests and when no Redis is configured.
type MemoryRevocations struct {
	mu       sync.RWMutex
	tokens   map[string]time.Time // jti -> revocation entry expiry
	sessions map[string]time.Time // identity -> cutoff instant
	now      func() time.Time
}

var (
	_ RevocationOracle = (*MemoryRevocations)(nil)
	_ Revoker          = (*MemoryRevocations)(nil)
)

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens:   make(map[string]time.Time),
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryRevocations) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenID] = m.now().Add(ttl)
	return nil
}

func (m *MemoryRevocations) RevokeSessions(ctx context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[identityID] = m.now().UTC()
	return nil
}

func (m *MemoryRevocations) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expiry, ok := m.tokens[tokenID]
	if !ok {
		return false, nil
	}
	return expiry.After(m.now()), nil
}

func (m *MemoryRevocations) SessionsRevokedAt(ctx context.Context, identityID string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[identityID], nil
}
