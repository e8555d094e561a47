package enums

import "fmt"

// UserRole controls what surface a user can reach.
type UserRole string

const (
	RoleOpsAdmin      UserRole = "OPS_ADMIN"
	RoleOpsDispatcher UserRole = "OPS_DISPATCHER"
	RoleDriver        UserRole = "DRIVER"
)

var validUserRoles = []UserRole{
	RoleOpsAdmin,
	RoleOpsDispatcher,
	RoleDriver,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsOps reports whether the role has operations privileges.
func (u UserRole) IsOps() bool {
	return u == RoleOpsAdmin || u == RoleOpsDispatcher
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
