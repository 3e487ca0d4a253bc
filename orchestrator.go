package walletauth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/ports"
)

// FlowState is the orchestrator's position in the auth flow.
type FlowState string

const (
	StateIdle                FlowState = "idle"
	StateConnecting          FlowState = "connecting"
	StateNonceRequested      FlowState = "nonce_requested"
	StateSigning             FlowState = "signing"
	StateVerifying           FlowState = "verifying"
	StateCredentialRedeeming FlowState = "credential_redeeming"
	StateAuthenticated       FlowState = "authenticated"
	StateFailed              FlowState = "failed"
)

// ErrorKind classifies an auth flow failure for the caller.
type ErrorKind string

const (
	ErrorProviderUnavailable        ErrorKind = "provider_unavailable"
	ErrorUserRejected               ErrorKind = "user_rejected"
	ErrorNonceRequestFailed         ErrorKind = "nonce_request_failed"
	ErrorSigningFailed              ErrorKind = "signing_failed"
	ErrorVerificationFailed         ErrorKind = "verification_failed"
	ErrorCredentialRedemptionFailed ErrorKind = "credential_redemption_failed"
)

// ErrAuthInProgress is returned when Authenticate is invoked while an
// earlier invocation is still running.
var ErrAuthInProgress = errors.New("authentication already in progress")

// Result is the uniform outcome of an auth flow. The orchestrator never
// panics or returns errors past this boundary.
type Result struct {
	Success   bool
	Kind      ErrorKind
	Err       error
	IsNewUser bool
	Address   string
	Tokens    *ports.SessionTokens
}

// Orchestrator drives the end-to-end wallet auth flow:
// connect, request nonce, sign, verify, redeem credential, persist
// local connection state.
type Orchestrator struct {
	bridge      WalletBridge
	api         AuthAPI
	connections ConnectionStore
	device      core.DeviceInfo

	inFlight atomic.Bool
	mu       sync.Mutex
	state    FlowState
}

// NewOrchestrator creates an orchestrator over the given bridge, backend
// API and connection store. device is attached to verify requests as
// audit metadata.
func NewOrchestrator(bridge WalletBridge, api AuthAPI, connections ConnectionStore, device core.DeviceInfo) *Orchestrator {
	return &Orchestrator{
		bridge:      bridge,
		api:         api,
		connections: connections,
		device:      device,
		state:       StateIdle,
	}
}

// State returns the current flow state for UI display.
func (o *Orchestrator) State() FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s FlowState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Authenticate runs the flow once. Overlapping invocations are rejected
// with ErrAuthInProgress rather than interleaved, since two in-flight
// flows would race on which signature matches which nonce.
func (o *Orchestrator) Authenticate(ctx context.Context, walletType WalletType) Result {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Result{Err: ErrAuthInProgress}
	}
	defer o.inFlight.Store(false)

	// Step 1: connect. Nothing is persisted yet, so failure here needs
	// no cleanup.
	o.setState(StateConnecting)
	address, err := o.bridge.RequestAccounts(ctx, walletType)
	if err != nil {
		o.setState(StateFailed)
		if errors.Is(err, ErrUserRejected) {
			return Result{Kind: ErrorUserRejected, Err: err}
		}
		return Result{Kind: ErrorProviderUnavailable, Err: err}
	}

	// Step 2: request nonce
	o.setState(StateNonceRequested)
	nonce, err := o.api.RequestNonce(ctx, address)
	if err != nil {
		return o.fail(ErrorNonceRequestFailed, err)
	}

	// Step 3: sign the message string from step 2 verbatim
	o.setState(StateSigning)
	signature, err := o.bridge.SignMessage(ctx, nonce.Message)
	if err != nil {
		if errors.Is(err, ErrUserRejected) {
			return o.fail(ErrorUserRejected, err)
		}
		return o.fail(ErrorSigningFailed, err)
	}

	// Step 4: verify
	o.setState(StateVerifying)
	verified, err := o.api.Verify(ctx, address, signature, o.device)
	if err != nil {
		return o.fail(ErrorVerificationFailed, err)
	}

	// Step 5: redeem the credential, with exactly one fallback through a
	// fresh login link. Best-effort recovery, not a retry loop.
	o.setState(StateCredentialRedeeming)
	tokens, err := o.redeemWithFallback(ctx, verified.Email, verified.Token)
	if err != nil {
		return o.fail(ErrorCredentialRedemptionFailed, err)
	}

	// Step 6: persist local connection state on full success only
	o.connections.Save(ConnectionState{
		Address:    core.NormalizeAddress(address),
		WalletType: walletType,
	})

	o.setState(StateAuthenticated)
	return Result{
		Success:   true,
		IsNewUser: verified.IsNewUser,
		Address:   core.NormalizeAddress(address),
		Tokens:    tokens,
	}
}

// Disconnect clears bridge and client-local connection state.
func (o *Orchestrator) Disconnect() {
	o.bridge.DisconnectLocal()
	o.connections.Clear()
	o.setState(StateIdle)
}

func (o *Orchestrator) redeemWithFallback(ctx context.Context, email, token string) (*ports.SessionTokens, error) {
	tokens, err := o.api.Redeem(ctx, email, token)
	if err == nil {
		return tokens, nil
	}

	// The failed credential is presented as proof of the completed flow;
	// the backend swaps it for a fresh one exactly once.
	fresh, linkErr := o.api.ReissueLoginToken(ctx, email, token)
	if linkErr != nil {
		return nil, errors.Join(err, linkErr)
	}

	return o.api.Redeem(ctx, email, fresh)
}

// fail performs the post-connect cleanup so the UI never shows a false
// "connected" state, then reports the failure.
func (o *Orchestrator) fail(kind ErrorKind, err error) Result {
	o.bridge.DisconnectLocal()
	o.connections.Clear()
	o.setState(StateFailed)
	return Result{Kind: kind, Err: err}
}
