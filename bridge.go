package walletauth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/driftmail/walletauth/internal/eth"
)

// WalletType tags a supported wallet provider.
type WalletType string

const (
	WalletTypeMetaMask      WalletType = "metamask"
	WalletTypeTrust         WalletType = "trust"
	WalletTypeCoinbase      WalletType = "coinbase"
	WalletTypeWalletConnect WalletType = "walletconnect" // remote mode, no local extension
	WalletTypeLocalKey      WalletType = "localkey"      // in-process dev wallet
)

var (
	// ErrNoProvider is returned when the requested provider is not installed
	ErrNoProvider = errors.New("wallet provider not available")

	// ErrUserRejected is returned when the user declines a provider prompt
	ErrUserRejected = errors.New("user rejected the request")

	// ErrNoAccounts is returned when the provider exposes no accounts
	ErrNoAccounts = errors.New("no accounts available")
)

// ProviderStatus describes one detected provider capability, resolved once
// at detection time rather than re-probed ad hoc.
type ProviderStatus struct {
	Type        WalletType
	Installed   bool
	InstallLink string
}

// installLinks points users at the wallet they are missing. WalletConnect
// has no entry: its remote mode needs no local extension.
var installLinks = map[WalletType]string{
	WalletTypeMetaMask: "https://metamask.io/download/",
	WalletTypeTrust:    "https://trustwallet.com/download",
	WalletTypeCoinbase: "https://www.coinbase.com/wallet/downloads",
}

// WalletBridge abstracts over injected wallet providers. Implementations
// surface failures as the typed errors above; they never swallow them.
type WalletBridge interface {
	// DetectProviders probes the environment for supported providers.
	// Never fails; absent providers report Installed=false.
	DetectProviders() []ProviderStatus

	// RequestAccounts asks the provider for account access and returns the
	// active account's address.
	RequestAccounts(ctx context.Context, walletType WalletType) (string, error)

	// SignMessage requests a personal-message signature over the exact
	// string supplied. Returns the hex-encoded signature.
	SignMessage(ctx context.Context, message string) (string, error)

	// DisconnectLocal clears bridge-local bookkeeping only. It cannot
	// force the provider itself to forget authorization.
	DisconnectLocal()
}

// KeyBridge is a WalletBridge backed by an in-process ECDSA key. Used in
// development and tests, where no browser-injected provider exists.
type KeyBridge struct {
	key *ecdsa.PrivateKey

	mu        sync.Mutex
	connected bool
}

// NewKeyBridge creates a bridge around a local private key.
func NewKeyBridge(key *ecdsa.PrivateKey) *KeyBridge {
	return &KeyBridge{key: key}
}

// DetectProviders reports the local-key provider plus the browser wallets
// this bridge cannot see, with their install links.
func (b *KeyBridge) DetectProviders() []ProviderStatus {
	statuses := []ProviderStatus{
		{Type: WalletTypeLocalKey, Installed: b.key != nil},
	}
	for _, walletType := range []WalletType{WalletTypeMetaMask, WalletTypeTrust, WalletTypeCoinbase} {
		statuses = append(statuses, ProviderStatus{
			Type:        walletType,
			InstallLink: installLinks[walletType],
		})
	}
	return statuses
}

// RequestAccounts returns the address derived from the local key. The
// local key serves only the localkey wallet type; requests for any other
// provider fail the same way a missing extension would.
func (b *KeyBridge) RequestAccounts(ctx context.Context, walletType WalletType) (string, error) {
	if walletType != WalletTypeLocalKey || b.key == nil {
		return "", ErrNoProvider
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()

	return crypto.PubkeyToAddress(b.key.PublicKey).Hex(), nil
}

// SignMessage personal-signs the message with the local key.
func (b *KeyBridge) SignMessage(ctx context.Context, message string) (string, error) {
	b.mu.Lock()
	connected := b.connected
	b.mu.Unlock()

	if !connected {
		return "", ErrNoAccounts
	}

	return eth.SignPersonalMessage(message, b.key)
}

// DisconnectLocal forgets the connected account.
func (b *KeyBridge) DisconnectLocal() {
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
}
