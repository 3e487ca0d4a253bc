package core

import (
	"strings"
	"time"
)

// placeholderDomain is the synthetic domain behind placeholder emails for
// wallet-only identities.
const placeholderDomain = "wallet.driftmail.local"

// Identity is an application account resolved from a verified wallet address.
type Identity struct {
	ID        string    // Opaque identity key
	Address   string    // Normalized wallet address (unique)
	Email     string    // Placeholder email for wallet-only identities
	Name      string    // Display name, derived from the address when not supplied
	CreatedAt time.Time // When the identity was provisioned
}

// PlaceholderEmail derives the synthesized email for a wallet-only identity.
// It is deterministic per address and never shown to the user as a real
// contact address.
func PlaceholderEmail(address string) string {
	return NormalizeAddress(address) + "@" + placeholderDomain
}

// AddressFromPlaceholderEmail extracts the wallet address a placeholder
// email was derived from. Returns ok=false for real (non-synthesized)
// addresses.
func AddressFromPlaceholderEmail(email string) (string, bool) {
	address, found := strings.CutSuffix(email, "@"+placeholderDomain)
	if !found || !IsValidAddress(address) {
		return "", false
	}
	return address, true
}

// DisplayName derives the default display name from an address.
func DisplayName(address string) string {
	return FormatAddress(address)
}

// DeviceInfo is free-form client metadata attached to a wallet session
// for auditing.
type DeviceInfo struct {
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
	Language  string `json:"language"`
}

// WalletSession is an append-only audit record of a successful wallet
// verification. Never mutated after creation.
type WalletSession struct {
	ID         string     // Unique session record identifier
	IdentityID string     // Identity the session belongs to
	Address    string     // Normalized wallet address used to sign in
	Device     DeviceInfo // Client metadata captured at verification time
	CreatedAt  time.Time  // When the verification succeeded
}
