// Package roles manages named permission bundles and their assignment edges.
// Syncing a role's permission set is the highest-fanout mutation in the
// system: one sync can change the effective permissions of every holder.
package roles

import "time"

// Role groups permissions under a human-readable name.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRoleInput carries the fields for a new role.
type CreateRoleInput struct {
	Name        string
	Description string
	CreatedBy   int64
}

// UpdateRoleInput carries the mutable fields of a role.
type UpdateRoleInput struct {
	Name        string
	Description string
}
