package ports

import "context"

// SessionTokens is the pair of tokens a redeemed credential yields.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // Access token lifetime in seconds
}

// CredentialIssuer is the boundary to the identity platform's one-time
// login credential mechanism. A credential is bound to an identity's
// email and redeemable exactly once.
type CredentialIssuer interface {
	// IssueLoginToken produces a one-time credential for the identity
	// behind email.
	IssueLoginToken(ctx context.Context, identityID, email string) (string, error)

	// Redeem exchanges a one-time credential for session tokens. A second
	// redemption of the same credential fails with core.ErrTokenInvalidated.
	Redeem(ctx context.Context, email, token string) (*SessionTokens, error)

	// ReissueLoginToken replaces a credential that could not be redeemed.
	// The caller must present the original credential; possession is the
	// proof of a completed signature flow, so no path exists to mint a
	// credential from an email alone. Each credential is replaceable at
	// most once.
	ReissueLoginToken(ctx context.Context, email, spentToken string) (string, error)
}
