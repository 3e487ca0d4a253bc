package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftmail/walletauth/adapters/credentials"
	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/service"
)

// Action names accepted by the multiplexed wallet-auth endpoint
const (
	ActionRequestNonce = "request_nonce"
	ActionVerify       = "verify"
)

// AuthHandlers contains HTTP handlers for wallet-auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	issuer      *credentials.JWTIssuer
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, issuer *credentials.JWTIssuer) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		issuer:      issuer,
	}
}

// WalletAuth handles the action-multiplexed wallet-auth endpoint
func (h *AuthHandlers) WalletAuth(c *gin.Context) {
	var req struct {
		Action        string          `json:"action" binding:"required"`
		WalletAddress string          `json:"wallet_address"`
		Signature     string          `json:"signature"`
		DeviceInfo    core.DeviceInfo `json:"device_info"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch req.Action {
	case ActionRequestNonce:
		h.requestNonce(c, req.WalletAddress)
	case ActionVerify:
		h.verify(c, req.WalletAddress, req.Signature, req.DeviceInfo)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
	}
}

func (h *AuthHandlers) requestNonce(c *gin.Context, address string) {
	challenge, err := h.authService.RequestNonce(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":     challenge.Nonce,
		"message":   challenge.Message,
		"timestamp": challenge.Timestamp,
	})
}

func (h *AuthHandlers) verify(c *gin.Context, address, signature string, device core.DeviceInfo) {
	if address == "" || signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing wallet_address or signature"})
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), address, signature, device)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		case errors.Is(err, core.ErrNonceExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Nonce expired or not found, please request a new one"})
		case errors.Is(err, core.ErrInvalidSignature):
			// One generic message for malformed signatures and address
			// mismatches alike
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature verification failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"user_id":        result.IdentityID,
		"wallet_address": result.Address,
		"is_new_user":    result.IsNewUser,
		"email":          result.Email,
		"token":          result.Token,
	})
}

// Redeem exchanges a one-time login credential for session tokens
func (h *AuthHandlers) Redeem(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tokens, err := h.issuer.Redeem(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenInvalidated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credential already redeemed"})
		case errors.Is(err, core.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credential expired"})
		case errors.Is(err, core.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credential"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credential"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    tokens.ExpiresIn,
	})
}

// LoginLink replaces a one-time credential that could not be redeemed.
// This is the fallback path the client takes when a redemption fails. The
// original credential is required: it is the proof of a completed
// signature flow, so the endpoint cannot be used to mint a credential
// from an email alone.
func (h *AuthHandlers) LoginLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.issuer.ReissueLoginToken(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		// One generic failure for bad credentials and unknown emails alike
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unable to issue login link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tokens, err := h.issuer.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
		case errors.Is(err, core.ErrTokenInvalidated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token has been invalidated"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    tokens.ExpiresIn,
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identityID, tokenID, err := h.issuer.Revoke(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// An already-expired token cannot be reused anyway
		if errors.Is(err, core.ErrTokenExpired) {
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
		return
	}

	h.authService.NotifyLogout(c.Request.Context(), identityID, tokenID)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	identityID, exists := c.Get("identityID")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": identityID,
	})
}
