package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/obs"
)

// ReadyProbe is a simple readiness check (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth core.
type API struct {
	mux           *http.ServeMux
	svc           *auth.Service
	guard         *auth.Guard
	policies      map[string]auth.EndpointPolicy
	verifiedRoles []auth.Role
	readyProbe    ReadyProbe
	version       string
}

// Option configures the API.
type Option func(*API)

// WithVerifiedRoles overrides the set of roles that demand a verified
// account. Defaults to driver and admin.
func WithVerifiedRoles(roles []auth.Role) Option {
	return func(a *API) {
		if len(roles) > 0 {
			a.verifiedRoles = roles
		}
	}
}

func New(svc *auth.Service, guard *auth.Guard, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:           http.NewServeMux(),
		svc:           svc,
		guard:         guard,
		readyProbe:    rp,
		version:       version,
		verifiedRoles: []auth.Role{auth.RoleDriver, auth.RoleAdmin},
	}
	for _, opt := range opts {
		opt(a)
	}

	adminPolicy := auth.EndpointPolicy{
		RequiredRoles: []auth.Role{auth.RoleAdmin},
		VerifiedRoles: a.verifiedRoles,
	}
	driverPolicy := auth.EndpointPolicy{
		RequiredRoles: []auth.Role{auth.RoleDriver},
		VerifiedRoles: a.verifiedRoles,
	}

	// Per-endpoint policy records; the auth guard consults these instead of
	// any annotation mechanism. Routes without an entry require a valid token
	// but no particular role.
	a.policies = map[string]auth.EndpointPolicy{
		"/healthz":            auth.Public,
		"/readyz":             auth.Public,
		"/metrics":            auth.Public,
		"/v1/info":            auth.Public,
		"/v1/auth/register":   auth.Public,
		"/v1/auth/login":      auth.Public,
		"/v1/auth/logout":     {},
		"/v1/auth/logout_all": {},
		"/v1/auth/me":         {},
		"/v1/admin/ping":      adminPolicy,
		"/v1/driver/shift":    driverPolicy,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/logout_all", a.handleLogoutAll)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/admin/ping", a.handleAdminPing)
	a.mux.HandleFunc("/v1/driver/shift", a.handleDriverShift)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authcore",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "authcore",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleAdminPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pong": true})
}

func (a *API) handleDriverShift(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"driver": id.ID, "on_shift": true})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// statusForAuthError maps core rejections to HTTP. Token-stage causes all
// collapse into one unauthorized answer; authorization-stage messages may
// name the required roles since the caller is already authenticated.
func statusForAuthError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrTokenRequired),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrNotVerified):
		return http.StatusForbidden, "account not verified"
	case errors.Is(err, auth.ErrAccessDenied):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "authentication error"
	}
}
