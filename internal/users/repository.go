package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for user accounts and
// their role edges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all users with their active role edges.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, is_active, created_at
		FROM users
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var users []User
	index := make(map[int64]int)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &u.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		u.Roles = []UserRole{}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := r.pool.Query(ctx, `
		SELECT ur.user_id, r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.is_active = TRUE AND r.is_active = TRUE
		ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var userID int64
		var edge UserRole
		if err := edgeRows.Scan(&userID, &edge.RoleID, &edge.RoleName); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, edge)
		}
	}
	return users, edgeRows.Err()
}

// Exists reports whether a user row exists.
func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// RoleExists reports whether an active role row exists.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND is_active = TRUE)`, roleID).Scan(&exists)
	return exists, err
}

// AssignRole upserts the user-role edge, reactivating a previously removed
// one. Returns true when the edge changed, false when it was already active.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID, actorID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, NOW(), NOW())
		ON CONFLICT (user_id, role_id)
		DO UPDATE SET is_active = TRUE, created_by = EXCLUDED.created_by, updated_at = NOW()
		WHERE user_roles.is_active = FALSE`,
		userID, roleID, actorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveRole deactivates the user-role edge.
func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_roles SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND role_id = $2 AND is_active = TRUE`,
		userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d has no active role %d: %w", userID, roleID, httpx.ErrNotFound)
	}
	return nil
}

// SetActive flips a user's active flag.
func (r *Repository) SetActive(ctx context.Context, userID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, httpx.ErrNotFound)
	}
	return nil
}
