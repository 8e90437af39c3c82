package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserProvider verifies credentials and produces identities for the session
// layer. Both the cookie-based web flow and the bearer-token API flow go
// through VerifyIdentity, so the two surfaces can never disagree on who may
// log in.
type UserProvider struct {
	repo               RepositoryManager
	logger             Logger
	verificationBypass bool
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(repo RepositoryManager) *UserProvider {
	return &UserProvider{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the provider.
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithVerificationBypass lets unverified accounts log in. Deactivated
// superusers stay blocked: deactivation of a privileged account is always
// deliberate.
func (u *UserProvider) WithVerificationBypass(bypass bool) *UserProvider {
	u.verificationBypass = bypass
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity carrying the resolved role. Unknown identifiers and wrong
// passwords produce the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.repo.Users().GetByIdentifier(ctx, identifier, WithProfile())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Profile == nil {
		profile, created, err := u.repo.Profiles().EnsureProfile(ctx, user.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve profile during verification")
		}
		if created {
			u.logger.Info("created missing profile for user %s", user.ID)
		}
		user.Profile = profile
	}

	if !user.IsActive && !(u.verificationBypass && !user.IsSuperuser) {
		return nil, ErrAccountNotVerified
	}

	return identityForUser(user), nil
}

// FindIdentityByIdentifier resolves an identity without checking credentials.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.repo.Users().GetByIdentifier(ctx, identifier, WithProfile())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if user.Profile == nil {
		profile, _, err := u.repo.Profiles().EnsureProfile(ctx, user.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve profile for identity")
		}
		user.Profile = profile
	}

	return identityForUser(user), nil
}

// GetUser loads the full user record behind an identity, profile included.
func (u *UserProvider) GetUser(ctx context.Context, identifier string) (*User, error) {
	user, err := u.repo.Users().GetByIdentifier(ctx, identifier, WithProfile())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

func identityForUser(user *User) Identity {
	profileRole := RoleUser
	if user.Profile != nil {
		user.Profile.EnsureRole()
		profileRole = user.Profile.Role
	}

	return authIdentity{
		id:       user.ID.String(),
		email:    user.Email,
		username: user.Username,
		role:     ResolveRole(profileRole, user.IsStaff),
	}
}

type authIdentity struct {
	id       string
	username string
	email    string
	role     UserRole
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() UserRole {
	return a.role
}

var _ Identity = authIdentity{}
var _ IdentityProvider = (*UserProvider)(nil)
