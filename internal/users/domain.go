// Package users manages the admin view of accounts and the user-role edges
// that feed permission resolution.
package users

import "time"

// User is the admin-facing account projection. Password hashes never leave
// the auth package.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	Roles     []UserRole `json:"roles"`
}

// UserRole is one active role edge of a user.
type UserRole struct {
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
}
