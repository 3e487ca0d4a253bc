package core

import (
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether input looks like an Ethereum address
// (0x prefix followed by 40 hex characters). Checksum casing is not enforced.
func IsValidAddress(input string) bool {
	return addressPattern.MatchString(input)
}

// NormalizeAddress lowercases an address so it can be used as a
// case-insensitive identity key.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// FormatAddress returns the truncated display form of an address
// (first six characters, ellipsis, last four). Returns "" for input
// too short to truncate.
func FormatAddress(address string) string {
	if len(address) < 10 {
		return ""
	}
	return address[:6] + "…" + address[len(address)-4:]
}
