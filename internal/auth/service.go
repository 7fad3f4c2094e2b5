package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/waisgo/authcore/internal/ids"
)

// Audit actions and results emitted by the login path.
const (
	ActionLogin     = "auth.login"
	ActionRegister  = "auth.register"
	ActionLogout    = "auth.logout"
	ActionLogoutAll = "auth.logout_all"

	ResultSucceeded          = "succeeded"
	ResultInvalidCredentials = "invalid_credentials"
	ResultLocked             = "locked"
	ResultLockedOut          = "locked_out"
)

// RequestMeta carries per-request attribution for audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is the produced surface of a successful login.
type LoginResult struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Service orchestrates credential verification, lockout bookkeeping and token
// issuance. It holds no mutable state of its own; all of it lives behind the
// store and revoker, so concurrent requests are safe.
type Service struct {
	creds   CredentialStore
	codec   *TokenCodec
	revoker Revoker
	audit   AuditSink
	lockout LockoutPolicy
	log     *zerolog.Logger
	now     func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithLockout overrides the lockout policy.
func WithLockout(policy LockoutPolicy) ServiceOption {
	return func(s *Service) { s.lockout = policy }
}

// WithRevoker enables logout support.
func WithRevoker(r Revoker) ServiceOption {
	return func(s *Service) { s.revoker = r }
}

// WithAuditSink wires the audit sink.
func WithAuditSink(sink AuditSink) ServiceOption {
	return func(s *Service) { s.audit = sink }
}

// WithLogger overrides the service logger.
func WithLogger(log *zerolog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the login service.
func NewService(creds CredentialStore, codec *TokenCodec, opts ...ServiceOption) (*Service, error) {
	if creds == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrConfig)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: token codec is required", ErrConfig)
	}
	nop := zerolog.Nop()
	svc := &Service{
		creds:   creds,
		codec:   codec,
		lockout: DefaultLockoutPolicy(),
		log:     &nop,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login verifies credentials, applies the lockout policy and mints a session
// token. Unknown identity, missing record and wrong password are externally
// indistinguishable; an active lock wins over a correct password.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		s.record(ctx, Event{Action: ActionLogin, Email: email, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultInvalidCredentials})
		return LoginResult{}, ErrInvalidCredentials
	}

	cred, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.record(ctx, Event{Action: ActionLogin, Email: email, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultInvalidCredentials})
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find credential: %w", err)
	}

	now := s.now().UTC()

	// Lock check strictly precedes password verification and mutates nothing.
	if s.lockout.Locked(cred.LockoutState, now) {
		s.record(ctx, Event{Action: ActionLogin, IdentityID: cred.ID, Email: email, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultLocked})
		return LoginResult{}, ErrAccountLocked
	}

	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		next, lockedOut := s.lockout.OnFailure(cred.LockoutState, now)
		cred.LockoutState = next
		if err := s.creds.Save(ctx, cred); err != nil {
			// Best-effort bookkeeping: the rejection stands either way.
			s.log.Warn().Err(err).Str("identity", cred.ID).Msg("persist lockout state failed")
		}
		result := ResultInvalidCredentials
		if lockedOut {
			result = ResultLockedOut
		}
		s.record(ctx, Event{Action: ActionLogin, IdentityID: cred.ID, Email: email, IP: meta.IP, UserAgent: meta.UserAgent, Result: result})
		return LoginResult{}, ErrInvalidCredentials
	}

	cred.LockoutState = s.lockout.OnSuccess(cred.LockoutState)
	if err := s.creds.Save(ctx, cred); err != nil {
		s.log.Warn().Err(err).Str("identity", cred.ID).Msg("reset lockout state failed")
	}

	token, expiresIn, err := s.codec.Issue(cred)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.record(ctx, Event{Action: ActionLogin, IdentityID: cred.ID, Email: email, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultSucceeded})
	return LoginResult{Token: token, ExpiresIn: expiresIn}, nil
}

// Register creates a credential with zero failures and no lock.
func (s *Service) Register(ctx context.Context, email, password, alias string, role Role) (*Credential, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role = NormalizeRole(role)
	if role == "" {
		role = RoleUser
	}
	cred := &Credential{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Alias:        strings.TrimSpace(alias),
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, err
	}
	s.record(ctx, Event{Action: ActionRegister, IdentityID: cred.ID, Email: email, Result: ResultSucceeded})
	return cred, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, id Identity, meta RequestMeta) error {
	if s.revoker == nil {
		return fmt.Errorf("%w: revoker not configured", ErrConfig)
	}
	ttl := id.RemainingLifetime(s.now().UTC())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, id.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.record(ctx, Event{Action: ActionLogout, IdentityID: id.ID, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultSucceeded})
	return nil
}

// LogoutAll kills every outstanding session for the identity. Tokens issued
// after this call remain valid.
func (s *Service) LogoutAll(ctx context.Context, id Identity, meta RequestMeta) error {
	if s.revoker == nil {
		return fmt.Errorf("%w: revoker not configured", ErrConfig)
	}
	if err := s.revoker.RevokeSessions(ctx, id.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.record(ctx, Event{Action: ActionLogoutAll, IdentityID: id.ID, IP: meta.IP, UserAgent: meta.UserAgent, Result: ResultSucceeded})
	return nil
}

// record forwards to the audit sink; sink failures are logged, never returned.
func (s *Service) record(ctx context.Context, ev Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("action", ev.Action).Msg("audit record failed")
	}
}
