package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubOracle gives tests precise control over revocation answers.
type stubOracle struct {
	revokedTokens map[string]bool
	sessionCutoff map[string]time.Time
	err           error
}

func (s *stubOracle) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revokedTokens[tokenID], nil
}

func (s *stubOracle) SessionsRevokedAt(ctx context.Context, identityID string) (time.Time, error) {
	if s.err != nil {
		return time.Time{}, s.err
	}
	return s.sessionCutoff[identityID], nil
}

func newStubOracle() *stubOracle {
	return &stubOracle{
		revokedTokens: make(map[string]bool),
		sessionCutoff: make(map[string]time.Time),
	}
}

func TestGuardPublicEndpointSkipsAuthentication(t *testing.T) {
	guard, err := NewGuard(testCodec(t), newStubOracle())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	id, err := guard.Authenticate(context.Background(), Public, "")
	if err != nil {
		t.Fatalf("public endpoint rejected: %v", err)
	}
	if id != nil {
		t.Fatalf("public endpoint must carry no identity, got %+v", id)
	}
}

func TestGuardRequiresBearerToken(t *testing.T) {
	guard, err := NewGuard(testCodec(t), newStubOracle())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer   "} {
		_, err := guard.Authenticate(context.Background(), EndpointPolicy{}, header)
		if !errors.Is(err, ErrTokenRequired) {
			t.Fatalf("header %q: err = %v, want ErrTokenRequired", header, err)
		}
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	guard, err := NewGuard(testCodec(t), newStubOracle())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	_, err = guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer not.a.real.token.at-all")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestGuardAcceptsValidTokenAndBuildsIdentity(t *testing.T) {
	codec := testCodec(t)
	guard, err := NewGuard(codec, newStubOracle())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	cred := &Credential{ID: "identity-7", Role: RoleAdmin, Verified: true, Alias: "ops"}
	token, _, err := codec.Issue(cred)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer "+token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id == nil {
		t.Fatal("expected identity")
	}
	if id.ID != "identity-7" || id.Role != RoleAdmin || !id.Verified || id.Alias != "ops" {
		t.Fatalf("identity mismatch: %+v", id)
	}
	if id.TokenID == "" {
		t.Fatal("token id missing from identity")
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	codec := testCodec(t)
	oracle := newStubOracle()
	guard, err := NewGuard(codec, oracle)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	token, _, err := codec.Issue(&Credential{ID: "identity-7", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	oracle.revokedTokens[claims.ID] = true

	_, err = guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer "+token)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestGuardRejectsSessionGenerationRevocation(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	codec := testCodec(t, WithCodecClock(func() time.Time { return current }))
	oracle := newStubOracle()
	guard, err := NewGuard(codec, oracle)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	before, _, err := codec.Issue(&Credential{ID: "identity-7", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// "Log out everywhere" one minute later kills the earlier token but not
	// one issued after the cutoff.
	oracle.sessionCutoff["identity-7"] = base.Add(time.Minute)
	current = base.Add(2 * time.Minute)
	after, _, err := codec.Issue(&Credential{ID: "identity-7", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer "+before); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("pre-cutoff token: err = %v, want ErrTokenRevoked", err)
	}
	if _, err := guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer "+after); err != nil {
		t.Fatalf("post-cutoff token rejected: %v", err)
	}
}

func TestGuardSurfacesOracleFaultsAsInternal(t *testing.T) {
	codec := testCodec(t)
	oracle := newStubOracle()
	oracle.err = errors.New("redis down")
	guard, err := NewGuard(codec, oracle)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	token, _, err := codec.Issue(&Credential{ID: "identity-7"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = guard.Authenticate(context.Background(), EndpointPolicy{}, "Bearer "+token)
	if err == nil || IsAuthError(err) {
		t.Fatalf("oracle fault must not map to an auth rejection, got %v", err)
	}
}
