package users

import (
	"context"
	"fmt"
	"strings"

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

// ListUsers returns one page of users and the total match count.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Username != "" {
		args = append(args, "%"+filter.Username+"%")
		conds = append(conds, fmt.Sprintf("u.username ILIKE $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM user_roles fr JOIN roles frr ON frr.id = fr.role_id
			WHERE fr.user_id = u.id AND frr.name = $%d)`, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users u "+where, args...).Scan(&total); err != nil {
		return nil, 0, shared.WrapInternal("users: count", err)
	}

	args = append(args, filter.Limit, shared.Offset(filter.Page, filter.Limit))
	query := fmt.Sprintf(`
		SELECT u.id, u.username, s.group_id, u.created_at,
		       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
		FROM users u
		LEFT JOIN students s ON s.user_id = u.id
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		%s
		GROUP BY u.id, s.group_id
		ORDER BY u.id
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.WrapInternal("users: list", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Username, &u.GroupID, &u.CreatedAt, &u.Roles)
		return u, err
	})
	if err != nil {
		return nil, 0, shared.WrapInternal("users: scan", err)
	}
	return users, total, nil
}
