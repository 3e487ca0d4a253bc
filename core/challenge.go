package core

import "time"

// TimestampLayout is the ISO-8601 form used inside challenge messages.
// Millisecond precision, always UTC. The challenge message must be
// byte-for-byte reproducible at verification time, so both sides format
// timestamps with this exact layout.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultNonceTTL is how long an issued nonce stays consumable.
const DefaultNonceTTL = 5 * time.Minute

// NonceRecord is a single-use authentication challenge issued for a
// wallet address.
type NonceRecord struct {
	ID        string    // Unique identifier for the record
	Address   string    // Normalized wallet address being challenged
	Nonce     string    // Hex-encoded random nonce to be signed
	CreatedAt time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
	Used      bool      // Set once the nonce has been consumed
}

// Expired reports whether the nonce is past its validity window at now.
func (r *NonceRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Timestamp returns the creation time formatted for the challenge message.
func (r *NonceRecord) Timestamp() string {
	return r.CreatedAt.UTC().Format(TimestampLayout)
}

// ChallengeMessage builds the canonical text the wallet signs. Field order
// and whitespace are part of the protocol; issuer and verifier must produce
// identical bytes.
func ChallengeMessage(appName, nonce, timestamp string) string {
	return "Sign this message to authenticate with " + appName + ".\n\n" +
		"Nonce: " + nonce + "\n" +
		"Timestamp: " + timestamp
}
