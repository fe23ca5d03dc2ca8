package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusquiz/campusquiz/internal/platform/db"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// Repository is the storage port used by Service.
type Repository interface {
	LoadPrincipalWithRoles(ctx context.Context, principalID int64) (Principal, error)
	FindPermission(ctx context.Context, name string) (Permission, error)
	// CreatePermission inserts name if absent. created is false when another
	// writer inserted it first; the returned permission is then the stored row.
	CreatePermission(ctx context.Context, name string) (perm Permission, created bool, err error)
	HasRolePermission(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
}

// SeedStore applies a seeding plan atomically.
type SeedStore interface {
	ApplySeed(ctx context.Context, plan SeedPlan) (SeedReport, error)
}

// PGRepository implements Repository and SeedStore on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const loadPrincipalSQL = `
SELECT u.id, u.username, r.id, r.name, r.is_privileged
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
WHERE u.id = $1
ORDER BY r.id`

// LoadPrincipalWithRoles reads the user and all held roles in one round trip.
func (r *PGRepository) LoadPrincipalWithRoles(ctx context.Context, principalID int64) (Principal, error) {
	rows, err := r.pool.Query(ctx, loadPrincipalSQL, principalID)
	if err != nil {
		return Principal{}, shared.WrapInternal("rbac: load principal", err)
	}
	defer rows.Close()

	var (
		principal Principal
		found     bool
	)
	for rows.Next() {
		var (
			roleID     *int64
			roleName   *string
			privileged *bool
		)
		if err := rows.Scan(&principal.ID, &principal.Username, &roleID, &roleName, &privileged); err != nil {
			return Principal{}, shared.WrapInternal("rbac: scan principal", err)
		}
		found = true
		if roleID == nil {
			continue
		}
		role := Role{ID: *roleID}
		if roleName != nil {
			role.Name = *roleName
		}
		if privileged != nil {
			role.IsPrivileged = *privileged
		}
		principal.Roles = append(principal.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return Principal{}, shared.WrapInternal("rbac: iterate principal", err)
	}
	if !found {
		return Principal{}, fmt.Errorf("rbac: principal %d: %w", principalID, shared.ErrNotFound)
	}
	return principal, nil
}

// FindPermission returns shared.ErrNotFound when no permission has that name.
func (r *PGRepository) FindPermission(ctx context.Context, name string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM permissions WHERE name = $1`, name).
		Scan(&perm.ID, &perm.Name, &perm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("rbac: permission %q: %w", name, shared.ErrNotFound)
		}
		return Permission{}, shared.WrapInternal("rbac: find permission", err)
	}
	return perm, nil
}

// CreatePermission relies on the unique constraint on permissions.name so two
// processes racing on the same name produce exactly one row.
func (r *PGRepository) CreatePermission(ctx context.Context, name string) (Permission, bool, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at`, name).
		Scan(&perm.ID, &perm.Name, &perm.CreatedAt)
	switch {
	case err == nil:
		return perm, true, nil
	case errors.Is(err, pgx.ErrNoRows), db.IsUniqueViolation(err):
		existing, findErr := r.FindPermission(ctx, name)
		if findErr != nil {
			return Permission{}, false, findErr
		}
		return existing, false, nil
	default:
		return Permission{}, false, shared.WrapInternal("rbac: create permission", err)
	}
}

// HasRolePermission reports whether any of roleIDs links to permissionID.
func (r *PGRepository) HasRolePermission(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM role_permissions
			WHERE role_id = ANY($1) AND permission_id = $2
		)`, roleIDs, permissionID).Scan(&exists)
	if err != nil {
		return false, shared.WrapInternal("rbac: check role permission", err)
	}
	return exists, nil
}

// ListPermissions returns all permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, shared.WrapInternal("rbac: list permissions", err)
	}
	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Permission, error) {
		var p Permission
		err := row.Scan(&p.ID, &p.Name, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, shared.WrapInternal("rbac: scan permissions", err)
	}
	return perms, nil
}

// ApplySeed inserts missing permissions, ensures the role archetypes and adds
// grants. Nothing is ever removed.
func (r *PGRepository) ApplySeed(ctx context.Context, plan SeedPlan) (SeedReport, error) {
	var report SeedReport
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if len(plan.Permissions) > 0 {
			tag, err := tx.Exec(ctx, `
				INSERT INTO permissions (name)
				SELECT unnest($1::text[])
				ON CONFLICT (name) DO NOTHING`, plan.Permissions)
			if err != nil {
				return fmt.Errorf("insert permissions: %w", err)
			}
			report.PermissionsCreated = tag.RowsAffected()
		}
		for _, grant := range plan.Roles {
			var roleID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO roles (name, is_privileged) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE
					SET is_privileged = roles.is_privileged OR EXCLUDED.is_privileged,
					    updated_at = NOW()
				RETURNING id`, grant.Role, grant.Privileged).Scan(&roleID)
			if err != nil {
				return fmt.Errorf("ensure role %s: %w", grant.Role, err)
			}
			report.RolesEnsured++
			if len(grant.Permissions) == 0 {
				continue
			}
			tag, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT $1, p.id FROM permissions p WHERE p.name = ANY($2)
				ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, grant.Permissions)
			if err != nil {
				return fmt.Errorf("grant %s: %w", grant.Role, err)
			}
			report.GrantsCreated += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, shared.WrapInternal("rbac: apply seed", err)
	}
	return report, nil
}

var (
	_ Repository = (*PGRepository)(nil)
	_ SeedStore  = (*PGRepository)(nil)
)
