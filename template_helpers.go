package accounts

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns a map of helper functions and data that can be used
// with the view engine's global data for authentication-aware templates.
//
// In templates, you can then use:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
//	{% if current_user|is_admin %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_admin":         isAdminTemplateUser,

		"roles": map[string]string{
			"user":  RoleUser,
			"admin": RoleAdmin,
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user set
// as current_user.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// GetTemplateUser extracts user data from router context for template usage.
func GetTemplateUser(ctx router.Context, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := ctx.Locals(userKey)
	return user, user != nil
}

// MergeTemplateData copies the template user into the view context when the
// caller has not set one.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	if data == nil {
		data = router.ViewContext{}
	}

	if _, exists := data[TemplateUserKey]; !exists {
		if user, ok := GetTemplateUser(ctx, TemplateUserKey); ok {
			data[TemplateUserKey] = user
		}
	}

	return data
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field to
// message map templates can iterate.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case AuthClaims:
		return u != nil && u.UserID() != ""
	case map[string]any:
		return len(u) > 0
	default:
		return false
	}
}

// hasRole checks if the user has the specified resolved role
func hasRole(user any, role string) bool {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return false
		}
		return ResolveRole(profileRoleOf(u), u.IsStaff) == role
	case User:
		return ResolveRole(profileRoleOf(&u), u.IsStaff) == role
	case AuthClaims:
		if u == nil {
			return false
		}
		return u.HasRole(role)
	case map[string]any:
		if userRole, exists := u["user_role"]; exists {
			if roleStr, ok := userRole.(string); ok {
				return roleStr == role
			}
		}
		return false
	default:
		return false
	}
}

func isAdminTemplateUser(user any) bool {
	switch u := user.(type) {
	case *User:
		return IsAdmin(u)
	case User:
		return IsAdmin(&u)
	case AuthClaims:
		return u != nil && u.IsAdmin()
	default:
		return hasRole(user, RoleAdmin)
	}
}

func profileRoleOf(u *User) UserRole {
	if u == nil || u.Profile == nil {
		return RoleUser
	}
	return u.Profile.Role
}
