package auth

// Permission represents a named capability.
type Permission string

const (
	PermExperienceRead    Permission = "experience:read"
	PermExperienceOperate Permission = "experience:operate"
)

var rolePermissions = map[Role][]Permission{
	RoleObserver: {PermExperienceRead},
	RoleOperator: {PermExperienceRead, PermExperienceOperate},
}

// HasPermission returns true if role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role.
func PermissionsForRole(role Role) []Permission {
	return append([]Permission(nil), rolePermissions[role]...)
}
