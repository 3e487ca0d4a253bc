package credentials

import "github.com/golang-jwt/jwt/v5"

// LoginClaims combines standard claims with one-time-credential ones
type LoginClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	RefreshID string `json:"rid"` // ID of the refresh token
}

// RefreshClaims are just the standard claims for refresh tokens
type RefreshClaims struct {
	jwt.RegisteredClaims
}
