package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const bearerScheme = "Bearer "

// Guard is the per-request token verifier. It is stateless given its
// configuration; safe for concurrent use.
type Guard struct {
	codec       *TokenCodec
	revocations RevocationOracle
}

// NewGuard constructs a Guard. The revocation oracle may be nil, in which
// case revocation checks are skipped (single-node development).
func NewGuard(codec *TokenCodec, revocations RevocationOracle) (*Guard, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: token codec is required", ErrConfig)
	}
	return &Guard{codec: codec, revocations: revocations}, nil
}

// Authenticate runs the verification pipeline for one request and either
// produces an authenticated identity or rejects. Public endpoints accept with
// no identity. Role requirements are not this guard's business; see Authorize.
func (g *Guard) Authenticate(ctx context.Context, policy EndpointPolicy, authorization string) (*Identity, error) {
	if policy.Public {
		return nil, nil
	}

	token, err := extractBearerToken(authorization)
	if err != nil {
		return nil, ErrTokenRequired
	}

	claims, err := g.codec.Decode(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if g.revocations != nil {
		revoked, err := g.revocations.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation lookup: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
		cutoff, err := g.revocations.SessionsRevokedAt(ctx, claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("session revocation lookup: %w", err)
		}
		if !cutoff.IsZero() && !claims.IssuedAt.Time.After(cutoff) {
			return nil, ErrTokenRevoked
		}
	}

	return &Identity{
		ID:        claims.Subject,
		Role:      claims.Role,
		Verified:  claims.Verified,
		Alias:     claims.Alias,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IsAuthError reports whether err is one of the authentication-stage
// rejections (as opposed to an internal fault).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTokenRequired) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenRevoked)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// RemainingLifetime is the time until the identity's token expires, measured
// from now. Used when revoking a presented token.
func (id Identity) RemainingLifetime(now time.Time) time.Duration {
	if !id.ExpiresAt.After(now) {
		return 0
	}
	return id.ExpiresAt.Sub(now)
}
