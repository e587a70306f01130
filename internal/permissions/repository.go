package permissions

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

// Repository provides PostgreSQL backed persistence for permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all permissions grouped by module then name.
func (r *Repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, COALESCE(module, ''), COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at
		FROM permissions
		ORDER BY module, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Module, &p.Description, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Get fetches one permission by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, COALESCE(module, ''), COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at
		FROM permissions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Module, &p.Description, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
		}
		return Permission{}, err
	}
	return p, nil
}

// Create inserts a new permission.
func (r *Repository) Create(ctx context.Context, input CreatePermissionInput) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, slug, module, description, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, NOW(), NOW())
		RETURNING id, name, slug, COALESCE(module, ''), COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at`,
		input.Name, input.Slug, input.Module, input.Description, input.CreatedBy).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Module, &p.Description, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Permission{}, fmt.Errorf("permission %q: %w", input.Name, httpx.ErrDuplicate)
		}
		return Permission{}, err
	}
	return p, nil
}

// Update changes name, module and description of an existing permission.
func (r *Repository) Update(ctx context.Context, id int64, input UpdatePermissionInput) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		UPDATE permissions SET name = $2, module = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, slug, COALESCE(module, ''), COALESCE(description, ''), is_active, COALESCE(created_by, 0), created_at, updated_at`,
		id, input.Name, input.Module, input.Description).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Module, &p.Description, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return Permission{}, fmt.Errorf("permission %q: %w", input.Name, httpx.ErrDuplicate)
		}
		return Permission{}, err
	}
	return p, nil
}

// Deactivate soft-deletes a permission.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("permission %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
