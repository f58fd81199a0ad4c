package models

import "time"

// VaultRole is the per-vault membership role. It is a separate authorization
// layer from the global RBAC roles: a vault admin moderates that vault only.
type VaultRole string

const (
	VaultRoleAdmin  VaultRole = "admin"
	VaultRoleMember VaultRole = "member"
)

type Vault struct {
	ID              string
	Name            string
	Description     string
	CoverImage      string
	Theme           string
	RequireApproval bool
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Members         []VaultMember
}

type VaultMember struct {
	VaultID  string
	UserID   string
	Name     string
	Email    string
	Role     VaultRole
	JoinedAt time.Time
}

// AdminCount returns the number of admin members.
func (v Vault) AdminCount() int {
	n := 0
	for _, m := range v.Members {
		if m.Role == VaultRoleAdmin {
			n++
		}
	}
	return n
}

// IsAdmin reports whether userID is an admin member of the vault.
func (v Vault) IsAdmin(userID string) bool {
	for _, m := range v.Members {
		if m.UserID == userID && m.Role == VaultRoleAdmin {
			return true
		}
	}
	return false
}

// IsMember reports whether userID belongs to the vault at any role.
func (v Vault) IsMember(userID string) bool {
	for _, m := range v.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
