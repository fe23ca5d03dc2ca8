package users

import (
	"context"
	"strings"

	"github.com/campusquiz/campusquiz/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, shared.Pagination, error) {
	filter.Username = strings.TrimSpace(filter.Username)
	filter.Role = strings.TrimSpace(filter.Role)
	filter.Page, filter.Limit = shared.NormalizePage(filter.Page, filter.Limit)
	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range users {
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}
	return users, shared.NewPagination(filter.Page, filter.Limit, total), nil
}
