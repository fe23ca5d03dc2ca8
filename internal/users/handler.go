package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusquiz/campusquiz/internal/platform/httpx"
	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// Handler exposes the read-only user listing.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.PermUsersRead)).Get("/", h.listUsers)
}

type listResponse struct {
	Items      []User            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Username: r.URL.Query().Get("username"),
		Role:     r.URL.Query().Get("role"),
		Page:     httpx.QueryInt(r, "page", 1),
		Limit:    httpx.QueryInt(r, "limit", 0),
	}
	users, page, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("list users", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: users, Pagination: page})
}
