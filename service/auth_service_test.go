package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmail/walletauth/adapters/credentials"
	"github.com/driftmail/walletauth/adapters/store"
	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/internal/eth"
)

type stubPublisher struct {
	mu     sync.Mutex
	logins int
	fail   bool
}

func (p *stubPublisher) PublishLogin(ctx context.Context, session *core.WalletSession, isNewUser bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.logins++
	return nil
}

func (p *stubPublisher) PublishLogout(ctx context.Context, identityID, tokenID string) error {
	return nil
}

type failingSessionLog struct{}

func (failingSessionLog) Append(ctx context.Context, session *core.WalletSession) error {
	return errors.New("audit store down")
}

type authFixture struct {
	svc     *AuthService
	store   *store.MemoryStore
	pub     *stubPublisher
	key     *ecdsa.PrivateKey
	address string
}

func newFixture(t *testing.T) *authFixture {
	t.Helper()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	issuer := credentials.NewJWTIssuer(signKey, mem, mem)
	pub := &stubPublisher{}

	svc := NewAuthService(mem, mem, mem, issuer, pub)

	return &authFixture{
		svc:     svc,
		store:   mem,
		pub:     pub,
		key:     walletKey,
		address: crypto.PubkeyToAddress(walletKey.PublicKey).Hex(),
	}
}

// signChallenge runs the client half of the protocol: request a nonce and
// personal-sign the exact message string.
func (f *authFixture) signChallenge(t *testing.T, ctx context.Context) string {
	t.Helper()

	challenge, err := f.svc.RequestNonce(ctx, f.address)
	require.NoError(t, err)

	signature, err := eth.SignPersonalMessage(challenge.Message, f.key)
	require.NoError(t, err)

	return signature
}

func TestRequestNonceValidatesAddress(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestNonce(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestRequestNonceChallengeShape(t *testing.T) {
	f := newFixture(t)

	challenge, err := f.svc.RequestNonce(context.Background(), f.address)
	require.NoError(t, err)

	assert.Len(t, challenge.Nonce, 64) // 32 random bytes, hex-encoded
	assert.Equal(t, core.ChallengeMessage(DefaultAppName, challenge.Nonce, challenge.Timestamp), challenge.Message)
}

func TestVerifyHappyPathAndIdentityReuse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	device := core.DeviceInfo{UserAgent: "test-agent", Platform: "linux", Language: "en"}

	signature := f.signChallenge(t, ctx)

	first, err := f.svc.Verify(ctx, f.address, signature, device)
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)
	assert.Equal(t, core.NormalizeAddress(f.address), first.Address)
	assert.Equal(t, core.PlaceholderEmail(f.address), first.Email)
	assert.NotEmpty(t, first.Token)

	// Second sign-in with a fresh nonce resolves the same identity
	signature = f.signChallenge(t, ctx)
	second, err := f.svc.Verify(ctx, f.address, signature, device)
	require.NoError(t, err)
	assert.False(t, second.IsNewUser)
	assert.Equal(t, first.IdentityID, second.IdentityID)

	sessions := f.store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "test-agent", sessions[0].Device.UserAgent)
	assert.Equal(t, 2, f.pub.logins)
}

func TestVerifyNonceSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	signature := f.signChallenge(t, ctx)

	_, err := f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
	require.NoError(t, err)

	// Replaying the same signature fails on the consumed nonce
	_, err = f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
	assert.ErrorIs(t, err, core.ErrNonceExpired)
}

func TestVerifyNonceExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	now := time.Now()
	f.svc.WithClock(func() time.Time { return now })

	signature := f.signChallenge(t, ctx)

	// Advance past the validity window before verifying
	f.svc.WithClock(func() time.Time { return now.Add(core.DefaultNonceTTL + time.Second) })

	_, err := f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
	assert.ErrorIs(t, err, core.ErrNonceExpired)
}

func TestVerifyRejectsSignatureOverDifferentMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RequestNonce(ctx, f.address)
	require.NoError(t, err)

	// Same signer, different message
	signature, err := eth.SignPersonalMessage("some other message", f.key)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyRejectsSignatureFromDifferentKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	challenge, err := f.svc.RequestNonce(ctx, f.address)
	require.NoError(t, err)

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	// Valid signature over the right message, wrong signer
	signature, err := eth.SignPersonalMessage(challenge.Message, otherKey)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RequestNonce(ctx, f.address)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, f.address, "0xdeadbeef", core.DeviceInfo{})
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyConcurrentRequestsSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	signature := f.signChallenge(t, ctx)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(ctx, f.address, signature, core.DeviceInfo{})
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
	assert.Equal(t, 1, misses)
}

func TestVerifySurvivesTelemetryFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pub.fail = true

	walletKey := f.key
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	issuer := credentials.NewJWTIssuer(signKey, mem, mem)
	svc := NewAuthService(mem, mem, failingSessionLog{}, issuer, f.pub)

	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()
	challenge, err := svc.RequestNonce(ctx, address)
	require.NoError(t, err)

	signature, err := eth.SignPersonalMessage(challenge.Message, walletKey)
	require.NoError(t, err)

	// Audit log and event publisher both fail; the flow still succeeds
	result, err := svc.Verify(ctx, address, signature, core.DeviceInfo{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}
