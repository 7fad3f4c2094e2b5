package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrTokenRequired      = errors.New("auth: token required")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrTokenRevoked       = errors.New("auth: token revoked")
	ErrAccessDenied       = errors.New("auth: access denied")
	ErrNotVerified        = errors.New("auth: account not verified")
	ErrConfig             = errors.New("auth: invalid configuration")
)
