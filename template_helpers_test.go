package accounts_test

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHelpers(t *testing.T) {
	helpers := accounts.TemplateHelpers()

	isAuthenticated, ok := helpers["is_authenticated"].(func(any) bool)
	require.True(t, ok)
	hasRole, ok := helpers["has_role"].(func(any, string) bool)
	require.True(t, ok)
	isAdmin, ok := helpers["is_admin"].(func(any) bool)
	require.True(t, ok)

	t.Run("is_authenticated", func(t *testing.T) {
		assert.False(t, isAuthenticated(nil))
		assert.False(t, isAuthenticated((*accounts.User)(nil)))
		assert.True(t, isAuthenticated(&accounts.User{Username: "u"}))
		assert.False(t, isAuthenticated(map[string]any{}))
		assert.True(t, isAuthenticated(map[string]any{"id": "x"}))
	})

	t.Run("has_role resolves staff", func(t *testing.T) {
		regular := &accounts.User{Profile: &accounts.Profile{Role: accounts.RoleUser}}
		staff := &accounts.User{IsStaff: true, Profile: &accounts.Profile{Role: accounts.RoleUser}}

		assert.True(t, hasRole(regular, accounts.RoleUser))
		assert.False(t, hasRole(regular, accounts.RoleAdmin))
		assert.True(t, hasRole(staff, accounts.RoleAdmin))
	})

	t.Run("is_admin", func(t *testing.T) {
		assert.False(t, isAdmin(&accounts.User{}))
		assert.True(t, isAdmin(&accounts.User{
			Profile: &accounts.Profile{Role: accounts.RoleAdmin},
		}))
	})
}

func TestTemplateHelpersWithUser(t *testing.T) {
	user := &accounts.User{Username: "tmpl"}
	helpers := accounts.TemplateHelpersWithUser(user)
	assert.Equal(t, user, helpers[accounts.TemplateUserKey])
}

func TestFormatValidationErrorToMap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Empty(t, accounts.FormatValidationErrorToMap(nil))
	})

	t.Run("ozzo errors flatten by field", func(t *testing.T) {
		err := validation.Errors{
			"email":    errors.New("must be a valid email address"),
			"password": errors.New("the length must be between 8 and 100"),
		}

		out := accounts.FormatValidationErrorToMap(err)
		assert.Equal(t, "must be a valid email address", out["email"])
		assert.Equal(t, "the length must be between 8 and 100", out["password"])
	})

	t.Run("plain errors keep their message", func(t *testing.T) {
		out := accounts.FormatValidationErrorToMap(errors.New("boom"))
		assert.Equal(t, "boom", out["error"])
	})
}
