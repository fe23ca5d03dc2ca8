package auth

import (
	"net/http"
	"strings"

	"github.com/campusquiz/campusquiz/internal/platform/httpx"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// Middleware resolves a bearer token into the request's principal id.
// Requests without a token pass through unauthenticated; guarded routes
// reject them later.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "malformed authorization header")
				return
			}
			userID, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipalID(r.Context(), userID)))
		})
	}
}
