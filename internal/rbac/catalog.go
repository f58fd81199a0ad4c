package rbac

import "legacyvault/internal/models"

// Closed permission vocabulary. Nothing outside this list is ever granted.
const (
	PermVaultCreate        models.Permission = "vault:create"
	PermVaultRead          models.Permission = "vault:read"
	PermVaultUpdate        models.Permission = "vault:update"
	PermVaultDelete        models.Permission = "vault:delete"
	PermVaultManageMembers models.Permission = "vault:manage_members"

	PermMemoryCreate  models.Permission = "memory:create"
	PermMemoryRead    models.Permission = "memory:read"
	PermMemoryUpdate  models.Permission = "memory:update"
	PermMemoryDelete  models.Permission = "memory:delete"
	PermMemoryApprove models.Permission = "memory:approve"

	PermUserRead   models.Permission = "user:read"
	PermUserUpdate models.Permission = "user:update"
	PermUserDelete models.Permission = "user:delete"

	PermAdminAccess         models.Permission = "admin:access"
	PermAdminManageUsers    models.Permission = "admin:manage_users"
	PermAdminManageRoles    models.Permission = "admin:manage_roles"
	PermAdminSystemSettings models.Permission = "admin:system_settings"
)

// AllPermissions returns every permission in the vocabulary.
func AllPermissions() []models.Permission {
	return []models.Permission{
		PermVaultCreate, PermVaultRead, PermVaultUpdate, PermVaultDelete, PermVaultManageMembers,
		PermMemoryCreate, PermMemoryRead, PermMemoryUpdate, PermMemoryDelete, PermMemoryApprove,
		PermUserRead, PermUserUpdate, PermUserDelete,
		PermAdminAccess, PermAdminManageUsers, PermAdminManageRoles, PermAdminSystemSettings,
	}
}

// IsKnown reports whether p belongs to the vocabulary.
func IsKnown(p models.Permission) bool {
	for _, known := range AllPermissions() {
		if known == p {
			return true
		}
	}
	return false
}

// PermissionsByCategory groups the vocabulary for presentation.
func PermissionsByCategory() map[string][]models.Permission {
	return map[string][]models.Permission{
		"Vault Permissions":  {PermVaultCreate, PermVaultRead, PermVaultUpdate, PermVaultDelete, PermVaultManageMembers},
		"Memory Permissions": {PermMemoryCreate, PermMemoryRead, PermMemoryUpdate, PermMemoryDelete, PermMemoryApprove},
		"User Permissions":   {PermUserRead, PermUserUpdate, PermUserDelete},
		"Admin Permissions":  {PermAdminAccess, PermAdminManageUsers, PermAdminManageRoles, PermAdminSystemSettings},
	}
}

var permissionNames = map[models.Permission]string{
	PermVaultCreate:        "Create Vaults",
	PermVaultRead:          "View Vaults",
	PermVaultUpdate:        "Edit Vaults",
	PermVaultDelete:        "Delete Vaults",
	PermVaultManageMembers: "Manage Vault Members",

	PermMemoryCreate:  "Create Memories",
	PermMemoryRead:    "View Memories",
	PermMemoryUpdate:  "Edit Memories",
	PermMemoryDelete:  "Delete Memories",
	PermMemoryApprove: "Approve Memories",

	PermUserRead:   "View User Profiles",
	PermUserUpdate: "Edit User Profiles",
	PermUserDelete: "Delete Users",

	PermAdminAccess:         "Access Admin Panel",
	PermAdminManageUsers:    "Manage Users",
	PermAdminManageRoles:    "Manage Roles",
	PermAdminSystemSettings: "Manage System Settings",
}

var permissionDescriptions = map[models.Permission]string{
	PermVaultCreate:        "Ability to create new vaults",
	PermVaultRead:          "Ability to view vaults",
	PermVaultUpdate:        "Ability to edit vault details",
	PermVaultDelete:        "Ability to delete vaults",
	PermVaultManageMembers: "Ability to add, remove, and manage vault members",

	PermMemoryCreate:  "Ability to upload new memories",
	PermMemoryRead:    "Ability to view memories",
	PermMemoryUpdate:  "Ability to edit memory details",
	PermMemoryDelete:  "Ability to delete memories",
	PermMemoryApprove: "Ability to approve or reject memories",

	PermUserRead:   "Ability to view user profiles",
	PermUserUpdate: "Ability to edit user profiles",
	PermUserDelete: "Ability to delete user accounts",

	PermAdminAccess:         "Ability to access the admin panel",
	PermAdminManageUsers:    "Ability to manage users and their roles",
	PermAdminManageRoles:    "Ability to create, edit, and delete roles",
	PermAdminSystemSettings: "Ability to modify system settings",
}

// PermissionName returns a human-readable name for p.
func PermissionName(p models.Permission) string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return string(p)
}

// PermissionDescription returns a human-readable description for p.
func PermissionDescription(p models.Permission) string {
	if desc, ok := permissionDescriptions[p]; ok {
		return desc
	}
	return "No description available"
}
