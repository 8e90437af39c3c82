package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the role attached to a profile
type UserRole = string

const (
	// RoleUser is the default role for registered accounts
	RoleUser UserRole = "user"
	// RoleAdmin grants access to the admin dashboard and admin API endpoints
	RoleAdmin UserRole = "admin"
)

// User is the login identity: credential, activation flag, and staff flags.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsActive      bool       `bun:"is_active" json:"is_active"`
	IsStaff       bool       `bun:"is_staff" json:"is_staff,omitempty"`
	IsSuperuser   bool       `bun:"is_superuser" json:"is_superuser,omitempty"`
	Profile       *Profile   `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Profile carries the extended attributes and verification state attached
// 1:1 to a User. A profile exists for every account that completed
// registration; accounts created through other channels are healed lazily
// via Profiles().EnsureProfile.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Photo         string     `bun:"photo" json:"photo,omitempty"`
	Role          UserRole   `bun:"user_role,notnull,default:'user'" json:"user_role,omitempty"`
	EmailVerified bool       `bun:"email_verified" json:"email_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureRole normalizes a missing role to the default.
func (p *Profile) EnsureRole() {
	if p.Role == "" {
		p.Role = RoleUser
	}
}

// TokenKind tags a verification token with its single purpose. Email
// verification and password reset never share a token.
type TokenKind = string

const (
	// KindEmailVerification marks tokens that activate an account
	KindEmailVerification TokenKind = "email_verification"
	// KindPasswordReset marks tokens that authorize a credential change
	KindPasswordReset TokenKind = "password_reset"
)

// VerificationToken binds a single-use opaque random string to a profile.
// Tokens have no expiry; consumption is an atomic conditional update on
// used_at so concurrent claimants cannot both spend the same token.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	ProfileID     uuid.UUID  `bun:"profile_id,notnull,type:uuid" json:"profile_id,omitempty"`
	Kind          TokenKind  `bun:"kind,notnull" json:"kind,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Consumed reports whether the token has already been claimed.
func (t *VerificationToken) Consumed() bool {
	return t != nil && t.UsedAt != nil
}

// APIToken is the opaque bearer credential for the JSON surface. One per
// account, created on first API login or registration and removed on API
// logout.
type APIToken struct {
	bun.BaseModel `bun:"table:api_tokens,alias:atk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Key           string     `bun:"key,notnull,unique" json:"key,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
