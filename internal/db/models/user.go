// Package models - user.go defines the User model for platform accounts.
package models

import "time"

// Privileged roles recognised when resolving alert responders. Role is a
// free-form string in the users table; these are the values the engine
// treats as administrative.
const (
	RoleAdmin         = "admin"
	RoleSuperAdmin    = "super_admin"
	RolePurchaseAdmin = "purchase_admin"
	RoleSecurityAdmin = "security_admin"
)

// User represents a platform account. Read-only for the detection engine.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
