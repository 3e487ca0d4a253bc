package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftmail/walletauth/core"
)

// RedisStore is a Redis implementation of the NonceStore, IdentityStore,
// SessionLog and RevocationStore interfaces.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletauth:",
	}
}

func (s *RedisStore) nonceKey(address string) string {
	return s.prefix + "nonce:" + address
}

func (s *RedisStore) identityKey(address string) string {
	return s.prefix + "identity:" + address
}

func (s *RedisStore) sessionKey(identityID string) string {
	return s.prefix + "sessions:" + identityID
}

func (s *RedisStore) invalidatedKey(tokenID string) string {
	return s.prefix + "invalidated:" + tokenID
}

// Save persists a nonce record under the address key with a TTL matching
// its validity window. A later Save for the same address overwrites the
// earlier record, so only the most recently issued nonce is consumable.
func (s *RedisStore) Save(ctx context.Context, record *core.NonceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal nonce record: %w", err)
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return core.ErrNonceExpired
	}

	if err := s.client.Set(ctx, s.nonceKey(record.Address), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save nonce: %w", err)
	}

	return nil
}

// Consume fetches and deletes the nonce record in one GETDEL round trip,
// so of two racing calls exactly one sees the record. Expiry is enforced
// both by the key TTL and by the record's own timestamp.
func (s *RedisStore) Consume(ctx context.Context, address string, now time.Time) (*core.NonceRecord, error) {
	payload, err := s.client.GetDel(ctx, s.nonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNonceExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}

	var record core.NonceRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nonce record: %w", err)
	}

	if record.Used || record.Expired(now) {
		return nil, core.ErrNonceExpired
	}

	record.Used = true
	return &record, nil
}

// FindByAddress returns the identity stored for an address.
func (s *RedisStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	payload, err := s.client.Get(ctx, s.identityKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	var identity core.Identity
	if err := json.Unmarshal([]byte(payload), &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}

	return &identity, nil
}

// Provision stores a new identity with SETNX so racing calls for the
// same address provision exactly one row; the loser reads back the winner.
func (s *RedisStore) Provision(ctx context.Context, identity *core.Identity) (*core.Identity, bool, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal identity: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.identityKey(identity.Address), payload, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to provision identity: %w", err)
	}

	if created {
		copied := *identity
		return &copied, true, nil
	}

	existing, err := s.FindByAddress(ctx, identity.Address)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Append pushes a wallet session audit row onto the identity's session list.
func (s *RedisStore) Append(ctx context.Context, session *core.WalletSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.RPush(ctx, s.sessionKey(session.IdentityID), payload).Err(); err != nil {
		return fmt.Errorf("failed to append session: %w", err)
	}

	return nil
}

// InvalidateToken marks a token as invalidated in Redis. SETNX makes the
// mark conditional, so racing invalidations of the same token report
// newly=true exactly once.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	newly, err := s.client.SetNX(ctx, s.invalidatedKey(tokenID), "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to invalidate token: %w", err)
	}

	return newly, nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis.
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.invalidatedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}
