package credentials

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/driftmail/walletauth/core"
	"github.com/driftmail/walletauth/ports"
)

const AudienceLogin = "login:one-time"
const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// JWTIssuer implements the CredentialIssuer interface with ES256 JWTs.
// One-time semantics come from recording each redeemed credential's JTI
// in the revocation store.
type JWTIssuer struct {
	signKey     *ecdsa.PrivateKey
	revocations ports.RevocationStore
	identities  ports.IdentityStore

	loginTTL   time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTIssuer creates a new JWT credential issuer.
func NewJWTIssuer(signKey *ecdsa.PrivateKey, revocations ports.RevocationStore, identities ports.IdentityStore) *JWTIssuer {
	return &JWTIssuer{
		signKey:     signKey,
		revocations: revocations,
		identities:  identities,
		loginTTL:    15 * time.Minute,
		accessTTL:   5 * time.Minute,
		refreshTTL:  5 * 24 * time.Hour, // 5 days
	}
}

// IssueLoginToken produces a one-time login credential bound to the
// identity's email.
func (j *JWTIssuer) IssueLoginToken(ctx context.Context, identityID, email string) (string, error) {
	now := time.Now()
	claims := LoginClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.loginTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceLogin},
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign login token: %w", err)
	}

	return signedToken, nil
}

// Redeem exchanges a one-time credential for session tokens. The
// credential's JTI is claimed in the revocation store for its remaining
// lifetime; of two racing redemptions only the claim winner succeeds.
func (j *JWTIssuer) Redeem(ctx context.Context, email, tokenStr string) (*ports.SessionTokens, error) {
	claims, err := j.parseLoginToken(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.Email != email {
		return nil, core.ErrInvalidToken
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil, core.ErrTokenExpired
	}
	newly, err := j.revocations.InvalidateToken(ctx, claims.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to mark credential redeemed: %w", err)
	}
	if !newly {
		return nil, core.ErrTokenInvalidated
	}

	return j.issueSessionTokens(claims.Subject)
}

// ReissueLoginToken replaces a one-time credential that could not be
// redeemed. The caller must present the original credential: possession
// proves a completed signature flow, so knowing an email (or the address
// it derives from) is never enough to obtain one. Each credential is
// replaceable at most once, tracked under its JTI in the revocation store.
func (j *JWTIssuer) ReissueLoginToken(ctx context.Context, email, spentToken string) (string, error) {
	claims, err := j.parseLoginToken(spentToken)
	if err != nil {
		return "", err
	}

	if claims.Email != email {
		return "", core.ErrInvalidToken
	}

	// The identity behind the credential must still exist. The placeholder
	// email embeds the normalized address, so no secondary index is needed.
	address, ok := core.AddressFromPlaceholderEmail(claims.Email)
	if !ok {
		return "", core.ErrIdentityNotFound
	}
	identity, err := j.identities.FindByAddress(ctx, address)
	if err != nil {
		return "", err
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return "", core.ErrTokenExpired
	}
	newly, err := j.revocations.InvalidateToken(ctx, "reissued:"+claims.ID, remaining)
	if err != nil {
		return "", fmt.Errorf("failed to mark credential reissued: %w", err)
	}
	if !newly {
		return "", core.ErrTokenInvalidated
	}

	return j.IssueLoginToken(ctx, identity.ID, identity.Email)
}

// Refresh rotates a refresh token, invalidating the old one and returning
// a fresh session token pair.
func (j *JWTIssuer) Refresh(ctx context.Context, refreshTokenStr string) (*ports.SessionTokens, error) {
	claims, err := j.parseClaims(refreshTokenStr, &RefreshClaims{}, AudienceRefresh)
	if err != nil {
		return nil, err
	}
	refreshClaims := claims.(*RefreshClaims)

	remaining := time.Until(refreshClaims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil, core.ErrTokenExpired
	}
	newly, err := j.revocations.InvalidateToken(ctx, refreshClaims.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to invalidate old token: %w", err)
	}
	if !newly {
		return nil, core.ErrTokenInvalidated
	}

	return j.issueSessionTokens(refreshClaims.Subject)
}

// Revoke invalidates a refresh token. Expired tokens are still recorded
// for a short window so they cannot be replayed under clock skew.
func (j *JWTIssuer) Revoke(ctx context.Context, refreshTokenStr string) (identityID, tokenID string, err error) {
	claims, err := j.parseClaims(refreshTokenStr, &RefreshClaims{}, AudienceRefresh)
	if err != nil {
		return "", "", err
	}
	refreshClaims := claims.(*RefreshClaims)

	remaining := time.Until(refreshClaims.ExpiresAt.Time)
	if remaining <= 0 {
		remaining = time.Hour
	}

	// Logout is idempotent; an already-invalidated token is fine.
	if _, err := j.revocations.InvalidateToken(ctx, refreshClaims.ID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to invalidate token: %w", err)
	}

	return refreshClaims.Subject, refreshClaims.ID, nil
}

// ValidateAccessToken parses an access token and confirms neither it nor
// its parent refresh token has been invalidated. Returns the identity ID.
func (j *JWTIssuer) ValidateAccessToken(ctx context.Context, accessTokenStr string) (string, error) {
	claims, err := j.parseClaims(accessTokenStr, &AccessClaims{}, AudienceAccess)
	if err != nil {
		return "", err
	}
	accessClaims := claims.(*AccessClaims)

	if accessClaims.RefreshID != "" {
		invalidated, err := j.revocations.IsTokenInvalidated(ctx, accessClaims.RefreshID)
		if err != nil {
			return "", fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return "", core.ErrTokenInvalidated
		}
	}

	return accessClaims.Subject, nil
}

func (j *JWTIssuer) issueSessionTokens(identityID string) (*ports.SessionTokens, error) {
	now := time.Now()
	refreshID := uuid.New().String()

	accessClaims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		RefreshID: refreshID,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodES256, accessClaims).SignedString(j.signKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        refreshID,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodES256, refreshClaims).SignedString(j.signKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &ports.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(j.accessTTL.Seconds()),
	}, nil
}

func (j *JWTIssuer) parseLoginToken(tokenStr string) (*LoginClaims, error) {
	claims, err := j.parseClaims(tokenStr, &LoginClaims{}, AudienceLogin)
	if err != nil {
		return nil, err
	}
	return claims.(*LoginClaims), nil
}

func (j *JWTIssuer) parseClaims(tokenStr string, claims jwt.Claims, audience string) (jwt.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	return token.Claims, nil
}
