// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the closed set of user roles.
type Role string

const (
	// RoleUser may create, edit and delete their own contracts.
	RoleUser Role = "user"
	// RoleAdmin may view and delete any contract but never authors one.
	RoleAdmin Role = "admin"
)

// User is an identity record. Users are provisioned lazily on the first
// request carrying an unseen external identity and are never deleted.
type User struct {
	ID string
	// ExternalID is the opaque caller-supplied identity (unique).
	ExternalID string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
