package walletauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/ports"
)

// NonceResponse is the backend's answer to a nonce request.
type NonceResponse struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// VerifyResponse is the backend's answer to a verify request.
type VerifyResponse struct {
	Success       bool   `json:"success"`
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	IsNewUser     bool   `json:"is_new_user"`
	Email         string `json:"email"`
	Token         string `json:"token"`
}

// AuthAPI is the client's view of the wallet-auth backend and the identity
// platform's credential endpoints.
type AuthAPI interface {
	RequestNonce(ctx context.Context, address string) (*NonceResponse, error)
	Verify(ctx context.Context, address, signature string, device core.DeviceInfo) (*VerifyResponse, error)
	Redeem(ctx context.Context, email, token string) (*ports.SessionTokens, error)
	ReissueLoginToken(ctx context.Context, email, spentToken string) (string, error)
}

// HTTPAuthAPI talks to the wallet-auth service over HTTP.
type HTTPAuthAPI struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAuthAPI creates an API client for the given base URL. A nil
// httpClient falls back to http.DefaultClient; timeouts are the
// transport's concern.
func NewHTTPAuthAPI(baseURL string, httpClient *http.Client) *HTTPAuthAPI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPAuthAPI{baseURL: baseURL, client: httpClient}
}

// RequestNonce asks the backend for a fresh challenge.
func (a *HTTPAuthAPI) RequestNonce(ctx context.Context, address string) (*NonceResponse, error) {
	req := map[string]any{
		"action":         "request_nonce",
		"wallet_address": address,
	}

	var resp NonceResponse
	if err := a.post(ctx, "/wallet-auth", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify submits the signature for verification.
func (a *HTTPAuthAPI) Verify(ctx context.Context, address, signature string, device core.DeviceInfo) (*VerifyResponse, error) {
	req := map[string]any{
		"action":         "verify",
		"wallet_address": address,
		"signature":      signature,
		"device_info":    device,
	}

	var resp VerifyResponse
	if err := a.post(ctx, "/wallet-auth", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Redeem exchanges a one-time credential for session tokens.
func (a *HTTPAuthAPI) Redeem(ctx context.Context, email, token string) (*ports.SessionTokens, error) {
	req := map[string]any{
		"email": email,
		"token": token,
	}

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := a.post(ctx, "/auth/redeem", req, &resp); err != nil {
		return nil, err
	}

	return &ports.SessionTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// ReissueLoginToken presents a failed credential to obtain its one-time
// replacement.
func (a *HTTPAuthAPI) ReissueLoginToken(ctx context.Context, email, spentToken string) (string, error) {
	req := map[string]any{
		"email": email,
		"token": spentToken,
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := a.post(ctx, "/auth/link", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (a *HTTPAuthAPI) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, errBody.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
