package rbac

import "legacyvault/internal/models"

const (
	RoleIDAdmin     = "role_admin"
	RoleIDModerator = "role_moderator"
	RoleIDUser      = "role_user"
	RoleIDGuest     = "role_guest"
)

// DefaultRoleID is assigned to every user at signup.
const DefaultRoleID = RoleIDUser

// SystemRoles returns the four built-in roles. They are seeded into the
// database at startup and are immutable afterwards.
func SystemRoles() []models.Role {
	return []models.Role{
		{
			ID:          RoleIDAdmin,
			Name:        "Admin",
			Description: "Full access to all features and settings",
			Permissions: AllPermissions(),
			IsSystem:    true,
		},
		{
			ID:          RoleIDModerator,
			Name:        "Moderator",
			Description: "Can moderate content and manage users",
			Permissions: []models.Permission{
				PermVaultRead, PermVaultUpdate,
				PermMemoryCreate, PermMemoryRead, PermMemoryUpdate, PermMemoryDelete, PermMemoryApprove,
				PermUserRead,
			},
			IsSystem: true,
		},
		{
			ID:          RoleIDUser,
			Name:        "User",
			Description: "Standard user access",
			Permissions: []models.Permission{
				PermVaultCreate, PermVaultRead,
				PermMemoryCreate, PermMemoryRead, PermMemoryUpdate, PermMemoryDelete,
				PermUserRead, PermUserUpdate,
			},
			IsSystem: true,
		},
		{
			ID:          RoleIDGuest,
			Name:        "Guest",
			Description: "Limited access for guests",
			Permissions: []models.Permission{PermVaultRead, PermMemoryRead},
			IsSystem:    true,
		},
	}
}
