package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/internal/eth"
	"github.com/driftmail/walletauth/ports"
)

// DefaultAppName is the application name embedded in challenge messages.
const DefaultAppName = "Driftmail"

// Challenge is the result of a nonce request.
type Challenge struct {
	Nonce     string
	Message   string
	Timestamp string
}

// VerifyResult is the outcome of a successful signature verification.
type VerifyResult struct {
	IdentityID string
	Address    string
	Email      string
	Token      string
	IsNewUser  bool
}

// AuthService handles wallet authentication business logic
type AuthService struct {
	nonces      ports.NonceStore
	identities  ports.IdentityStore
	sessions    ports.SessionLog
	credentials ports.CredentialIssuer
	eventPub    ports.EventPublisher

	appName  string
	nonceTTL time.Duration
	now      func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	identities ports.IdentityStore,
	sessions ports.SessionLog,
	credentials ports.CredentialIssuer,
	eventPub ports.EventPublisher,
) *AuthService {
	return &AuthService{
		nonces:      nonces,
		identities:  identities,
		sessions:    sessions,
		credentials: credentials,
		eventPub:    eventPub,
		appName:     DefaultAppName,
		nonceTTL:    core.DefaultNonceTTL,
		now:         time.Now,
	}
}

// WithAppName overrides the application name used in challenge messages.
func (s *AuthService) WithAppName(name string) *AuthService {
	s.appName = name
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RequestNonce issues a new challenge for the address. The address is
// validated before any storage is touched.
func (s *AuthService) RequestNonce(ctx context.Context, address string) (*Challenge, error) {
	if !core.IsValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	record := &core.NonceRecord{
		ID:        uuid.New().String(),
		Address:   core.NormalizeAddress(address),
		Nonce:     hex.EncodeToString(nonceBytes),
		CreatedAt: now,
		ExpiresAt: now.Add(s.nonceTTL),
	}

	if err := s.nonces.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save nonce: %w", err)
	}

	timestamp := record.Timestamp()
	return &Challenge{
		Nonce:     record.Nonce,
		Message:   core.ChallengeMessage(s.appName, record.Nonce, timestamp),
		Timestamp: timestamp,
	}, nil
}

// Verify consumes the address's pending nonce, reconstructs the exact
// challenge message, recovers the signer and compares it to the claimed
// address. On success it resolves (or provisions) the identity, appends
// an audit session row and issues a one-time login credential.
func (s *AuthService) Verify(ctx context.Context, address, signature string, device core.DeviceInfo) (*VerifyResult, error) {
	if !core.IsValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	normalized := core.NormalizeAddress(address)

	record, err := s.nonces.Consume(ctx, normalized, s.now())
	if err != nil {
		return nil, err
	}

	message := core.ChallengeMessage(s.appName, record.Nonce, record.Timestamp())

	signer, err := eth.RecoverSigner(message, signature)
	if err != nil {
		// Malformed signatures and failed recovery collapse into one
		// outcome so callers cannot probe which check failed.
		return nil, core.ErrInvalidSignature
	}

	if core.NormalizeAddress(signer.Hex()) != normalized {
		return nil, core.ErrInvalidSignature
	}

	identity, isNewUser, err := s.resolveIdentity(ctx, normalized)
	if err != nil {
		return nil, err
	}

	session := &core.WalletSession{
		ID:         uuid.New().String(),
		IdentityID: identity.ID,
		Address:    normalized,
		Device:     device,
		CreatedAt:  s.now(),
	}

	// Audit and event publication are telemetry, never fatal
	if err := s.sessions.Append(ctx, session); err != nil {
		log.Printf("warning: failed to record wallet session: %v", err)
	}
	if err := s.eventPub.PublishLogin(ctx, session, isNewUser); err != nil {
		log.Printf("warning: failed to publish login event: %v", err)
	}

	token, err := s.credentials.IssueLoginToken(ctx, identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue login credential: %w", err)
	}

	return &VerifyResult{
		IdentityID: identity.ID,
		Address:    normalized,
		Email:      identity.Email,
		Token:      token,
		IsNewUser:  isNewUser,
	}, nil
}

// NotifyLogout publishes a logout event for other instances. Telemetry
// only, never fails the caller.
func (s *AuthService) NotifyLogout(ctx context.Context, identityID, tokenID string) {
	if err := s.eventPub.PublishLogout(ctx, identityID, tokenID); err != nil {
		log.Printf("warning: failed to publish logout event: %v", err)
	}
}

// resolveIdentity returns the identity for an address, provisioning one
// on first sight. New-user detection is purely address-presence: if an
// identity row is deleted and the address reappears, it is treated as
// new again.
func (s *AuthService) resolveIdentity(ctx context.Context, address string) (*core.Identity, bool, error) {
	identity, err := s.identities.FindByAddress(ctx, address)
	if err == nil {
		return identity, false, nil
	}
	if err != core.ErrIdentityNotFound {
		return nil, false, fmt.Errorf("failed to look up identity: %w", err)
	}

	candidate := &core.Identity{
		ID:        uuid.New().String(),
		Address:   address,
		Email:     core.PlaceholderEmail(address),
		Name:      core.DisplayName(address),
		CreatedAt: s.now(),
	}

	stored, created, err := s.identities.Provision(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to provision identity: %w", err)
	}

	return stored, created, nil
}
