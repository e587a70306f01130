// Package permissions manages the admin-editable permission catalogue.
// Permissions are soft-deactivated, never hard-deleted, so audit history and
// role assignments stay intact.
package permissions

import "time"

// Permission represents an atomic capability identified by a stable slug.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Module      string    `json:"module"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePermissionInput carries the fields for a new permission.
type CreatePermissionInput struct {
	Name        string
	Slug        string
	Module      string
	Description string
	CreatedBy   int64
}

// UpdatePermissionInput carries the mutable fields of a permission. The slug
// is immutable once issued: route guards reference it by value.
type UpdatePermissionInput struct {
	Name        string
	Module      string
	Description string
}
