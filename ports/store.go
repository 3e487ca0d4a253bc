package ports

import (
	"context"
	"time"

	"github.com/driftmail/walletauth/core"
)

// NonceStore persists single-use challenge nonces keyed by address.
// Only the most recently issued nonce per address is consumable.
type NonceStore interface {
	// Save persists a freshly issued nonce record, replacing any earlier
	// record for the same address.
	Save(ctx context.Context, record *core.NonceRecord) error

	// Consume selects the newest unused, unexpired record for the address
	// and atomically marks it used. Two concurrent calls for the same
	// nonce must not both succeed. Returns core.ErrNonceExpired when no
	// consumable record exists.
	Consume(ctx context.Context, address string, now time.Time) (*core.NonceRecord, error)
}

// IdentityStore maps normalized wallet addresses to application identities.
type IdentityStore interface {
	// FindByAddress returns the identity for an address, or
	// core.ErrIdentityNotFound.
	FindByAddress(ctx context.Context, address string) (*core.Identity, error)

	// Provision stores a new identity for a never-seen address. If a
	// concurrent call provisioned the address first, the existing identity
	// is returned with created=false.
	Provision(ctx context.Context, identity *core.Identity) (stored *core.Identity, created bool, err error)
}

// SessionLog records wallet sign-in audit rows. Append-only.
type SessionLog interface {
	Append(ctx context.Context, session *core.WalletSession) error
}

// RevocationStore tracks consumed one-time credentials and invalidated
// refresh tokens.
type RevocationStore interface {
	// InvalidateToken marks a token invalidated until expiry elapses.
	// Returns whether this call newly invalidated it; concurrent calls
	// for the same token see true exactly once.
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error)

	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
