package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name        string
		profileRole accounts.UserRole
		isStaff     bool
		want        accounts.UserRole
	}{
		{
			name:        "regular user",
			profileRole: accounts.RoleUser,
			isStaff:     false,
			want:        accounts.RoleUser,
		},
		{
			name:        "admin role",
			profileRole: accounts.RoleAdmin,
			isStaff:     false,
			want:        accounts.RoleAdmin,
		},
		{
			name:        "staff flag promotes user role",
			profileRole: accounts.RoleUser,
			isStaff:     true,
			want:        accounts.RoleAdmin,
		},
		{
			name:        "admin and staff",
			profileRole: accounts.RoleAdmin,
			isStaff:     true,
			want:        accounts.RoleAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accounts.ResolveRole(tt.profileRole, tt.isStaff))
		})
	}
}

func TestDestination(t *testing.T) {
	assert.Equal(t, accounts.DestinationAdminDashboard, accounts.Destination(accounts.RoleAdmin))
	assert.Equal(t, accounts.DestinationDashboard, accounts.Destination(accounts.RoleUser))
}

func TestParseRole(t *testing.T) {
	role, ok := accounts.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, accounts.RoleAdmin, role)

	_, ok = accounts.ParseRole("superhero")
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, accounts.IsAdmin(nil))

	assert.False(t, accounts.IsAdmin(&accounts.User{
		Profile: &accounts.Profile{Role: accounts.RoleUser},
	}))

	assert.True(t, accounts.IsAdmin(&accounts.User{
		Profile: &accounts.Profile{Role: accounts.RoleAdmin},
	}))

	assert.True(t, accounts.IsAdmin(&accounts.User{
		IsStaff: true,
		Profile: &accounts.Profile{Role: accounts.RoleUser},
	}))

	// no profile falls back to the default role, staff still promotes
	assert.False(t, accounts.IsAdmin(&accounts.User{}))
	assert.True(t, accounts.IsAdmin(&accounts.User{IsStaff: true}))
}
