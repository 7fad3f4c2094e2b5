package httpapi

import (
	"net/http"

	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/obs"
)

const authHeader = "Authorization"

// policyFor returns the endpoint policy for a path. Unknown paths default to
// authenticated-but-unrestricted so a forgotten table entry fails closed.
func (a *API) policyFor(path string) auth.EndpointPolicy {
	if p, ok := a.policies[path]; ok {
		return p
	}
	return auth.EndpointPolicy{}
}

// withAuth runs the token verification and role authorization guards for
// every request, per the endpoint's declared policy.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.guard == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		policy := a.policyFor(r.URL.Path)
		identity, err := a.guard.Authenticate(r.Context(), policy, r.Header.Get(authHeader))
		if err != nil {
			result := "error"
			if auth.IsAuthError(err) {
				result = "rejected"
			}
			obs.ObserveTokenVerification(result)
			code, msg := statusForAuthError(err)
			writeError(w, code, msg)
			return
		}

		if identity == nil {
			// Public endpoint: no identity context attached.
			next.ServeHTTP(w, r)
			return
		}
		obs.ObserveTokenVerification("accepted")

		if err := auth.Authorize(policy, identity); err != nil {
			code, msg := statusForAuthError(err)
			writeError(w, code, msg)
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), *identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
