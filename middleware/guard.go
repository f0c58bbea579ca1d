package middleware

import (
	"context"
	"net/http"
	"strings"

	storeguard "github.com/MrEthical07/storeguard"
	"github.com/MrEthical07/storeguard/session"
)

// SessionCookieName is the cookie the storefront keeps the opaque session
// ID in.
const SessionCookieName = "sg_session"

type authResultContextKey struct{}
type sessionContextKey struct{}

// AuthResultFromContext returns the result RequireAccess stored.
func AuthResultFromContext(ctx context.Context) (*storeguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*storeguard.AuthResult)
	return res, ok
}

// SessionFromContext returns the session RequireSession stored.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

// RequireAccess is the stateless guard: it verifies the bearer access
// token without a Redis round-trip. Revocation is only observed once the
// token expires; use RequireSession where that is not acceptable.
func RequireAccess(engine *storeguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession is the authoritative guard: it resolves the session
// cookie against Redis, so logout, password change, and account status
// changes take effect on the next request.
func RequireSession(engine *storeguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := storeguard.WithClientIP(r.Context(), clientIP(r))
			sess, err := engine.ValidateSession(ctx, cookie.Value)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
