package roles

import (
	"context"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context, filters RoleListFilters) ([]Role, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles. Unknown sort keys fall back to name order.
func (s *Service) ListRoles(ctx context.Context, filters RoleListFilters) ([]Role, error) {
	switch filters.SortBy {
	case "name", "created_at", "id":
	default:
		filters.SortBy = "name"
	}
	if filters.SortDir != "desc" {
		filters.SortDir = "asc"
	}
	roles, err := s.repo.ListRoles(ctx, filters)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].Permissions == nil {
			roles[i].Permissions = []string{}
		}
	}
	return roles, nil
}
