package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmail/walletauth/core"
)

const testAddress = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"

func newNonceRecord(now time.Time) *core.NonceRecord {
	return &core.NonceRecord{
		ID:        "rec-1",
		Address:   testAddress,
		Nonce:     "cafebabe",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestMemoryStoreConsumeSingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Save(ctx, newNonceRecord(now)))

	record, err := s.Consume(ctx, testAddress, now)
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", record.Nonce)
	assert.True(t, record.Used)

	// Second consume fails even though the nonce never expired
	_, err = s.Consume(ctx, testAddress, now)
	assert.ErrorIs(t, err, core.ErrNonceExpired)
}

func TestMemoryStoreConsumeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Save(ctx, newNonceRecord(now)))

	_, err := s.Consume(ctx, testAddress, now.Add(6*time.Minute))
	assert.ErrorIs(t, err, core.ErrNonceExpired)
}

func TestMemoryStoreConsumeUnknownAddress(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Consume(context.Background(), testAddress, time.Now())
	assert.ErrorIs(t, err, core.ErrNonceExpired)
}

func TestMemoryStoreSaveReplacesEarlierNonce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	first := newNonceRecord(now)
	require.NoError(t, s.Save(ctx, first))

	second := newNonceRecord(now)
	second.ID = "rec-2"
	second.Nonce = "feedface"
	require.NoError(t, s.Save(ctx, second))

	record, err := s.Consume(ctx, testAddress, now)
	require.NoError(t, err)
	assert.Equal(t, "feedface", record.Nonce)
}

func TestMemoryStoreConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Save(ctx, newNonceRecord(now)))

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Consume(ctx, testAddress, now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, misses int
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, core.ErrNonceExpired)
			misses++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, misses)
}

func TestMemoryStoreProvisionOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := &core.Identity{ID: "id-1", Address: testAddress, Email: core.PlaceholderEmail(testAddress)}
	stored, created, err := s.Provision(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "id-1", stored.ID)

	second := &core.Identity{ID: "id-2", Address: testAddress}
	stored, created, err = s.Provision(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "id-1", stored.ID)

	found, err := s.FindByAddress(ctx, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "id-1", found.ID)
}

func TestMemoryStoreFindMissingIdentity(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByAddress(context.Background(), testAddress)
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)
}

func TestMemoryStoreSessionLogAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Append(ctx, &core.WalletSession{ID: "s1", IdentityID: "id-1", Address: testAddress}))
	require.NoError(t, s.Append(ctx, &core.WalletSession{ID: "s2", IdentityID: "id-1", Address: testAddress}))

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, "s2", sessions[1].ID)
}

func TestMemoryStoreTokenInvalidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	invalidated, err := s.IsTokenInvalidated(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	newly, err := s.InvalidateToken(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, newly)

	invalidated, err = s.IsTokenInvalidated(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	// The mark is claimable once; a second claim reports it was lost
	newly, err = s.InvalidateToken(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, newly)
}

func TestMemoryStoreInvalidateTokenConcurrentSingleClaim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 16
	claims := make(chan bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newly, err := s.InvalidateToken(ctx, "jti-race", time.Minute)
			assert.NoError(t, err)
			claims <- newly
		}()
	}
	wg.Wait()
	close(claims)

	won := 0
	for newly := range claims {
		if newly {
			won++
		}
	}
	assert.Equal(t, 1, won)
}
