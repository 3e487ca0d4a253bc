package store

import (
	"context"
	"sync"
	"time"

	"github.com/driftmail/walletauth/core"
)

// MemoryStore is an in-memory implementation of the NonceStore,
// IdentityStore, SessionLog and RevocationStore interfaces. Intended for
// tests and single-instance deployments.
type MemoryStore struct {
	mu                sync.Mutex
	nonces            map[string]*core.NonceRecord // keyed by normalized address
	identities        map[string]*core.Identity    // keyed by normalized address
	sessions          []*core.WalletSession
	invalidatedTokens map[string]time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:            make(map[string]*core.NonceRecord),
		identities:        make(map[string]*core.Identity),
		invalidatedTokens: make(map[string]time.Time),
	}
}

// Save persists a nonce record, replacing any earlier record for the
// same address.
func (s *MemoryStore) Save(ctx context.Context, record *core.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.nonces[record.Address] = &copied
	return nil
}

// Consume returns the latest record for the address and marks it used.
// The check-and-mark happens under one lock so concurrent calls cannot
// both succeed against the same nonce.
func (s *MemoryStore) Consume(ctx context.Context, address string, now time.Time) (*core.NonceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.nonces[address]
	if !ok || record.Used || record.Expired(now) {
		return nil, core.ErrNonceExpired
	}

	record.Used = true

	copied := *record
	return &copied, nil
}

// FindByAddress returns the identity stored for an address.
func (s *MemoryStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[address]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}

	copied := *identity
	return &copied, nil
}

// Provision stores a new identity unless one already exists for the
// address, in which case the existing identity wins.
func (s *MemoryStore) Provision(ctx context.Context, identity *core.Identity) (*core.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.identities[identity.Address]; ok {
		copied := *existing
		return &copied, false, nil
	}

	copied := *identity
	s.identities[identity.Address] = &copied

	result := copied
	return &result, true, nil
}

// Append records a wallet session audit row.
func (s *MemoryStore) Append(ctx context.Context, session *core.WalletSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions = append(s.sessions, &copied)
	return nil
}

// Sessions returns a snapshot of the audit log. Useful for tests.
func (s *MemoryStore) Sessions() []*core.WalletSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.WalletSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// InvalidateToken marks a token as invalidated until expiry elapses. The
// check-and-mark happens under one lock, so of two racing calls exactly
// one is reported as the new invalidation.
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiryTime, exists := s.invalidatedTokens[tokenID]; exists && time.Now().Before(expiryTime) {
		return false, nil
	}

	s.invalidatedTokens[tokenID] = time.Now().Add(expiry)
	return true, nil
}

// IsTokenInvalidated checks if a token is invalidated.
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	if time.Now().After(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}

	return true, nil
}
