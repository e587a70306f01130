package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/httpx"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles and their
// permission edges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all roles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at
		FROM roles
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Get fetches one role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at
		FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, input CreateRoleInput) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, NOW(), NOW())
		RETURNING id, name, COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at`,
		input.Name, input.Description, input.CreatedBy).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("role %q: %w", input.Name, httpx.ErrDuplicate)
		}
		return Role{}, err
	}
	return role, nil
}

// Update changes name and description of an existing role.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateRoleInput) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at`,
		id, input.Name, input.Description).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("role %q: %w", input.Name, httpx.ErrDuplicate)
		}
		return Role{}, err
	}
	return role, nil
}

// Deactivate soft-deletes a role. Holders keep the edge rows but the role
// stops contributing permissions.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// ListPermissionIDs returns the active permission edges of a role.
func (r *Repository) ListPermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT permission_id FROM role_permissions
		WHERE role_id = $1 AND is_active = TRUE
		ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActivePermissions reports how many of the given permission IDs exist
// and are active. Callers use it to reject syncs referencing unknown or
// deactivated permissions.
func (r *Repository) CountActivePermissions(ctx context.Context, ids []int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM permissions WHERE id = ANY($1) AND is_active = TRUE`, ids).
		Scan(&count)
	return count, err
}

// ReplacePermissions makes the given set the role's exact active permission
// list. Runs in one transaction: deactivate everything, then upsert the new
// edges reactivating any that existed before.
func (r *Repository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64, actorID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE role_permissions SET is_active = FALSE, updated_at = NOW()
		WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id, is_active, created_by, created_at, updated_at)
			VALUES ($1, $2, TRUE, $3, NOW(), NOW())
			ON CONFLICT (role_id, permission_id)
			DO UPDATE SET is_active = TRUE, created_by = EXCLUDED.created_by, updated_at = NOW()`,
			roleID, pid, actorID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
