package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeMessageExactBytes(t *testing.T) {
	msg := ChallengeMessage("Driftmail", "deadbeef", "2025-06-01T10:30:00.000Z")

	require.Equal(t,
		"Sign this message to authenticate with Driftmail.\n\n"+
			"Nonce: deadbeef\n"+
			"Timestamp: 2025-06-01T10:30:00.000Z",
		msg)
}

func TestNonceRecordTimestampIsUTCWithMilliseconds(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 30, 45, 123_000_000, time.FixedZone("CEST", 2*3600))
	record := &NonceRecord{CreatedAt: created}

	assert.Equal(t, "2025-06-01T10:30:45.123Z", record.Timestamp())
}

func TestNonceRecordExpired(t *testing.T) {
	now := time.Now()
	record := &NonceRecord{
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}

	assert.False(t, record.Expired(now))
	assert.False(t, record.Expired(now.Add(5*time.Minute)))
	assert.True(t, record.Expired(now.Add(5*time.Minute+time.Second)))
}

func TestPlaceholderEmailRoundTrip(t *testing.T) {
	email := PlaceholderEmail(checksummed)

	address, ok := AddressFromPlaceholderEmail(email)
	require.True(t, ok)
	assert.Equal(t, NormalizeAddress(checksummed), address)

	_, ok = AddressFromPlaceholderEmail("alice@example.com")
	assert.False(t, ok)
}
