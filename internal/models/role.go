package models

import "time"

// Permission is an atomic named capability drawn from a closed vocabulary
// (see the rbac package for the catalog). Permissions are never created
// dynamically.
type Permission string

// Role bundles a set of permissions under a name. System roles are seeded
// in code and can never be modified or deleted.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission reports whether the role grants p.
func (r Role) HasPermission(p Permission) bool {
	for _, rp := range r.Permissions {
		if rp == p {
			return true
		}
	}
	return false
}

// RoleAssignment maps a user to one of their roles. A user always holds at
// least one role; removing the last one is rejected.
type RoleAssignment struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
	AssignedBy string
}
