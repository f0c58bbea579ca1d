package middleware

import (
	"errors"
	"net/http"

	storeguard "github.com/MrEthical07/storeguard"
	"github.com/MrEthical07/storeguard/csrf"
)

// CSRFHeaderName is the request header the double-submit token travels in.
const CSRFHeaderName = "X-CSRF-Token"

// RequireCSRF guards mutating methods with the session-bound CSRF token.
// It must run after RequireSession. Safe methods (GET, HEAD, OPTIONS)
// pass through untouched.
//
// An expired session yields 401 so the client re-authenticates; every
// other validation failure yields 403 without saying which check failed.
func RequireCSRF(engine *storeguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if engine == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token := r.Header.Get(CSRFHeaderName)
			if err := engine.ValidateCSRFToken(r.Context(), sess.ID, token); err != nil {
				if errors.Is(err, csrf.ErrSessionExpired) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
