package auth

import (
	"context"
	"time"
)

// CredentialStore persists identity credentials and their lockout state.
type CredentialStore interface {
	Find(ctx context.Context, id string) (*Credential, error)
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	// Save persists the password hash and lockout fields of an existing
	// credential. Concurrent saves for the same identity may race; lockout
	// counting is best-effort.
	Save(ctx context.Context, cred *Credential) error
}

// RevocationOracle answers revocation questions during token verification.
// Lookups may be served from a shared cache; a just-revoked token may still
// be accepted within the cache's propagation window.
type RevocationOracle interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	// SessionsRevokedAt returns the instant of the identity's most recent
	// "log out everywhere"; tokens issued at or before it are dead. The zero
	// time means never.
	SessionsRevokedAt(ctx context.Context, identityID string) (time.Time, error)
}

// Revoker records revocations. Implemented alongside RevocationOracle by the
// shared revocation store.
type Revoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	RevokeSessions(ctx context.Context, identityID string) error
}

// Event is a single audit record emitted by the login and guard paths.
type Event struct {
	Action     string
	IdentityID string
	Email      string
	IP         string
	UserAgent  string
	Result     string
}

// AuditSink receives audit events. Calls are fire-and-forget: a failing sink
// must never fail the login or verification that produced the event.
type AuditSink interface {
	Record(ctx context.Context, ev Event) error
}
