package auth

import (
	"strings"
	"time"
)

// Role identifies the coarse account type carried inside session tokens.
type Role string

const (
	RoleUser   Role = "user"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// NormalizeRole trims and lower-cases a role name.
func NormalizeRole(r Role) Role {
	return Role(strings.TrimSpace(strings.ToLower(string(r))))
}

// LockoutState is the brute-force bookkeeping portion of a credential record.
type LockoutState struct {
	FailedAttempts int
	LastFailedAt   *time.Time
	LockedUntil    *time.Time
}

// Credential holds everything the login path needs to know about an identity.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	Alias        string
	LockoutState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the authenticated request context derived from a decrypted
// token. It lives for the duration of a single request and is never persisted.
type Identity struct {
	ID        string
	Role      Role
	Verified  bool
	Alias     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// EndpointPolicy is the per-endpoint authentication/authorization record the
// guards consult. Public endpoints skip authentication entirely. VerifiedRoles
// lists the roles that may only be exercised by verified accounts.
type EndpointPolicy struct {
	Public        bool
	RequiredRoles []Role
	VerifiedRoles []Role
}

// RequireRoles builds a policy demanding one of the given roles.
func RequireRoles(roles ...Role) EndpointPolicy {
	return EndpointPolicy{RequiredRoles: roles}
}

// Public is the policy for endpoints that need no authentication.
var Public = EndpointPolicy{Public: true}
