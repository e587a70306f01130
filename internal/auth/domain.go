// Package auth handles session based login against the users table. Token
// issuance beyond the session cookie is out of scope; downstream components
// only consume the authenticated user ID.
package auth

import "time"

// User represents an account able to sign in.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
