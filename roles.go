package accounts

// Post-login destinations used by both HTTP surfaces.
const (
	DestinationDashboard      = "dashboard"
	DestinationAdminDashboard = "admin_dashboard"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// ResolveRole computes the effective authorization class for an account.
// It is the single place where the profile role and the staff flag are
// combined; the session gate, the post-login router, and the admin view
// predicate all go through it.
func ResolveRole(profileRole UserRole, isStaff bool) UserRole {
	if profileRole == RoleAdmin || isStaff {
		return RoleAdmin
	}
	return RoleUser
}

// Destination maps a resolved role to the post-login view identifier.
//
//	admin        -> admin_dashboard
//	user + staff -> admin_dashboard (staff resolves to admin)
//	user         -> dashboard
func Destination(role UserRole) string {
	if role == RoleAdmin {
		return DestinationAdminDashboard
	}
	return DestinationDashboard
}

// IsAdmin reports whether the account may access admin views. Applied on
// every admin request, not only at login.
func IsAdmin(user *User) bool {
	if user == nil {
		return false
	}

	profileRole := RoleUser
	if user.Profile != nil {
		profileRole = user.Profile.Role
	}

	return ResolveRole(profileRole, user.IsStaff) == RoleAdmin
}
