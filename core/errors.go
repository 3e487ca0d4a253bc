package core

import "errors"

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrNonceExpired     = errors.New("nonce expired or not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrIdentityNotFound = errors.New("identity not found")
)
