package access

// UserRole is the principal's platform role
type UserRole = string

const (
	// RoleClient is a citizen seeking legal help
	RoleClient UserRole = "client"
	// RoleAdvocate is a verified legal professional
	RoleAdvocate UserRole = "advocate"
	// RoleGovernment is a government/judiciary account
	RoleGovernment UserRole = "government"
	// RoleAdmin is a platform operator
	RoleAdmin UserRole = "admin"
)

// ValidAccessType checks that an access kind is one of video, chat, both.
func ValidAccessType(t AccessType) bool {
	switch t {
	case AccessVideo, AccessChat, AccessBoth:
		return true
	default:
		return false
	}
}

// ValidRole checks that a role belongs to the closed platform set.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleClient, RoleAdvocate, RoleGovernment, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, ValidRole(role)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleClient,
		RoleAdvocate,
		RoleGovernment,
		RoleAdmin,
	}
}
