// Package eth implements EIP-191 personal-message signing and signer
// recovery. Both sides of the wallet-auth protocol must apply the exact
// same prefix-and-hash transform, so it lives in one place.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected byte length of a personal-sign
// signature: 64 bytes of R||S plus one recovery byte.
const SignatureLength = 65

// HashPersonalMessage applies the EIP-191 "\x19Ethereum Signed Message"
// prefix to msg and returns its Keccak-256 hash. This is the transform
// wallet providers apply implicitly for personal_sign requests.
func HashPersonalMessage(msg string) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// SignPersonalMessage signs msg with key the way a wallet provider would,
// returning a hex-encoded 65-byte signature with the recovery byte in the
// legacy 27/28 form.
func SignPersonalMessage(msg string, key *ecdsa.PrivateKey) (string, error) {
	hash := HashPersonalMessage(msg)

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// crypto.Sign yields V in {0,1}; wallets emit {27,28}
	sig[SignatureLength-1] += 27

	return hexutil.Encode(sig), nil
}

// RecoverSigner recovers the address that produced signatureHex over the
// personal-message hash of msg. Accepts recovery bytes in either the
// {0,1} or the legacy {27,28} form.
func RecoverSigner(msg, signatureHex string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	// Work on a copy so the caller's bytes are left alone
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[SignatureLength-1] >= 27 {
		normalized[SignatureLength-1] -= 27
	}

	hash := HashPersonalMessage(msg)

	pubKey, err := crypto.SigToPub(hash.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
