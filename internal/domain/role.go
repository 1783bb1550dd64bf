package domain

// Role enumerates the closed set of roles a user account can hold.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RoleStaff      Role = "staff"
	RolePatient    Role = "patient"
)

// Valid reports whether the role belongs to the closed set. Tokens carry the
// role as a plain string, so gates must reject anything outside this set.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleDoctor, RoleStaff, RolePatient:
		return true
	}
	return false
}
