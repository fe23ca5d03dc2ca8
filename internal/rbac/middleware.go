package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusquiz/campusquiz/internal/platform/httpx"
	"github.com/campusquiz/campusquiz/internal/shared"
)

type principalKey struct{}

// ContextWithPrincipal stores the resolved principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by Middleware.Require.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware gates HTTP handlers on a single permission each.
type Middleware struct {
	Service  *Service
	Registry *Registry
	Logger   *slog.Logger
}

// Require declares permission in the registry and checks it on every request.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	m.Registry.Register(permission)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := shared.PrincipalIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			principal, err := m.Service.Authorize(r.Context(), principalID, permission)
			if err != nil {
				m.writeError(w, permission, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (m Middleware) writeError(w http.ResponseWriter, permission string, err error) {
	if denied, ok := AsDenied(err); ok {
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  "Forbidden",
			Status: http.StatusForbidden,
			Detail: denied.Error(),
			Reason: string(denied.Reason),
		})
		return
	}
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	}
	if m.Logger != nil {
		m.Logger.Error("rbac require", slog.String("permission", permission), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
