package ports

import (
	"context"

	"github.com/driftmail/walletauth/core"
)

// EventPublisher notifies other instances about auth events.
type EventPublisher interface {
	PublishLogin(ctx context.Context, session *core.WalletSession, isNewUser bool) error
	PublishLogout(ctx context.Context, identityID string, tokenID string) error
}
