package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
// Role strings must never be compared outside this package.
const (
	RoleGuard      = "guard"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
	RoleAuditor    = "auditor" // read-only role
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsKnown reports whether role is part of the closed role set.
func IsKnown(role string) bool {
	switch role {
	case RoleGuard, RoleSupervisor, RoleAdmin, RoleAuditor, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
