package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Alias    string `json:"alias"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	cred, err := a.svc.Register(r.Context(), req.Email, req.Password, req.Alias, auth.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "email and password are required")
		default:
			obs.Logger().Error().Err(err).Msg("register failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    cred.ID,
		"email": cred.Email,
		"role":  cred.Role,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := auth.RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	result, err := a.svc.Login(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			obs.ObserveLogin("locked")
			// Remaining lock time is deliberately not revealed.
			writeError(w, http.StatusLocked, "account temporarily locked")
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.ObserveLogin("invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			obs.ObserveLogin("error")
			// Full detail stays server-side; the caller gets a generic answer.
			obs.Logger().Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	obs.ObserveLogin("success")
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	meta := auth.RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	if err := a.svc.Logout(r.Context(), id, meta); err != nil {
		obs.Logger().Error().Err(err).Msg("logout failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	meta := auth.RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	if err := a.svc.LogoutAll(r.Context(), id, meta); err != nil {
		obs.Logger().Error().Err(err).Msg("logout all failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id.ID,
		"role":     id.Role,
		"verified": id.Verified,
		"alias":    id.Alias,
	})
}
