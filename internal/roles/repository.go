package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusquiz/campusquiz/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var sortColumns = map[string]string{
	"name":       "r.name",
	"created_at": "r.created_at",
	"id":         "r.id",
}

// ListRoles returns all roles with their granted permission names.
func (r *Repository) ListRoles(ctx context.Context, filters RoleListFilters) ([]Role, error) {
	column, ok := sortColumns[filters.SortBy]
	if !ok {
		column = "r.name"
	}
	dir := "ASC"
	if filters.SortDir == "desc" {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT r.id, r.name, r.is_privileged, r.created_at, r.updated_at,
		       COALESCE(array_agg(DISTINCT p.name) FILTER (WHERE p.name IS NOT NULL), '{}') AS permissions,
		       (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id) AS members
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		GROUP BY r.id
		ORDER BY %s %s, r.id`, column, dir)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, shared.WrapInternal("roles: list", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		var role Role
		err := row.Scan(&role.ID, &role.Name, &role.IsPrivileged, &role.CreatedAt, &role.UpdatedAt, &role.Permissions, &role.Members)
		return role, err
	})
	if err != nil {
		return nil, shared.WrapInternal("roles: scan", err)
	}
	return roles, nil
}
