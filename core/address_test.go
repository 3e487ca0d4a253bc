package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checksummed = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress(checksummed))
	assert.True(t, IsValidAddress(strings.ToLower(checksummed)))

	assert.False(t, IsValidAddress(""))
	assert.False(t, IsValidAddress("0x"))
	assert.False(t, IsValidAddress(checksummed[2:]))                   // missing prefix
	assert.False(t, IsValidAddress(checksummed+"ab"))                  // too long
	assert.False(t, IsValidAddress("0xZZ5801a7D398351b8bE11C439e05C5")) // bad hex
}

func TestNormalizeAddressIdempotent(t *testing.T) {
	normalized := NormalizeAddress(checksummed)
	assert.Equal(t, strings.ToLower(checksummed), normalized)
	assert.Equal(t, normalized, NormalizeAddress(normalized))
}

func TestFormatAddress(t *testing.T) {
	require.Equal(t, "0xAb58…eC9B", FormatAddress(checksummed))
	assert.Equal(t, "", FormatAddress(""))
	assert.Equal(t, "", FormatAddress("0x1234"))
}

func TestFormatNormalizeStable(t *testing.T) {
	normalized := NormalizeAddress(checksummed)
	display := FormatAddress(normalized)

	// Formatting a normalized address yields an already-lowercase form
	assert.Equal(t, NormalizeAddress(display), display)
}
