package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read-only view over role and permission truth. It performs no
// caching and exposes no mutations.
type Store interface {
	// ActiveRolesForUser returns the IDs of active roles held through active
	// user-role assignments. A deactivated assignment edge revokes access the
	// same way a deactivated role does, and a deactivated account holds no
	// roles at all.
	ActiveRolesForUser(ctx context.Context, userID int64) ([]int64, error)
	// ActivePermissionsForRoles returns the distinct slugs of active
	// permissions attached to the given roles through active edges.
	ActivePermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	// HasRoleNamed reports whether an active account holds a role with the
	// exact name.
	HasRoleNamed(ctx context.Context, userID int64, name string) (bool, error)
}

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) ActiveRolesForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		JOIN users u ON u.id = ur.user_id
		WHERE ur.user_id = $1 AND ur.is_active AND r.is_active AND u.is_active
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roleIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, rows.Err()
}

// ActivePermissionsForRoles is a single relational fetch regardless of how
// many roles the user holds.
func (s *PGStore) ActivePermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.slug
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE rp.role_id = ANY($1) AND p.is_active AND rp.is_active AND r.is_active
		ORDER BY p.slug`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// HasRoleNamed intentionally skips the role and edge active filters: holding
// the named role at all is what the super-admin predicate checks. The account
// itself must be active, so deactivating a user suspends the bypass too.
func (s *PGStore) HasRoleNamed(ctx context.Context, userID int64, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			JOIN users u ON u.id = ur.user_id
			WHERE ur.user_id = $1 AND r.name = $2 AND u.is_active
		)`, userID, name).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
