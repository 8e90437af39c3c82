package accounts

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/uptrace/bun"
)

// GetRouterSession builds a SessionObject from the claims the JWT middleware
// stored in the router context.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromAuthClaims(claims)
}

// RegisterWebRoutes mounts the HTML surface: registration, login, logout,
// email verification, password reset, profile, and the dashboards.
func RegisterWebRoutes[T any](app router.Router[T], opts ...AccountsControllerOption) {
	controller := NewAccountsController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)
	adminGuard := controller.AdminGuard()

	app.Get(controller.Routes.Home, controller.Home).SetName("home.get")

	app.Get(controller.Routes.Login, controller.LoginShow).SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("sign-in.post")
	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).SetName("register.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.VerifyEmail), controller.VerifyEmail).
		SetName("verify-email.get")

	app.Get(controller.Routes.ForgotPassword, controller.ForgotPasswordShow).SetName("pwd-forgot.get")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).SetName("pwd-forgot.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPasswordForm).
		SetName("pwd-reset.get")
	app.Post(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPasswordExecute).
		SetName("pwd-reset.post")

	app.Get(controller.Routes.Dashboard, controller.Dashboard, protected)
	app.Get(controller.Routes.Profile, controller.ProfileShow, protected)
	app.Post(controller.Routes.Profile, controller.ProfileUpdate, protected)
	app.Get(controller.Routes.AdminDashboard, controller.AdminDashboard, protected, adminGuard)
}

type AccountsControllerRoutes struct {
	Home           string
	Login          string
	Logout         string
	Register       string
	Dashboard      string
	Profile        string
	VerifyEmail    string
	ForgotPassword string
	ResetPassword  string
	AdminDashboard string
}

type AccountsControllerViews struct {
	Home           string
	Login          string
	Register       string
	Dashboard      string
	Profile        string
	VerifyEmail    string
	ForgotPassword string
	ResetPassword  string
	AdminDashboard string
}

type AccountsController struct {
	Debug            bool
	Logger           Logger
	Repo             RepositoryManager
	Routes           *AccountsControllerRoutes
	Views            *AccountsControllerViews
	Auther           HTTPAuthenticator
	Config           Config
	Mailer           Mailer
	Activity         ActivitySink
	BaseURL          string
	FromAddress      string
	SkipVerification bool
	ErrorHandler     router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AccountsControllerRoutes{
			Home:           "/",
			Login:          "/login",
			Logout:         "/logout",
			Register:       "/register",
			Dashboard:      "/dashboard",
			Profile:        "/profile",
			VerifyEmail:    "/auth/verify-email",
			ForgotPassword: "/auth/forgot-password",
			ResetPassword:  "/auth/reset-password",
			AdminDashboard: "/admin/dashboard",
		},
		Views: &AccountsControllerViews{
			Home:           "home",
			Login:          "login",
			Register:       "register",
			Dashboard:      "dashboard",
			Profile:        "profile",
			VerifyEmail:    "verify_email",
			ForgotPassword: "forgot_password",
			ResetPassword:  "reset_password",
			AdminDashboard: "admin_dashboard",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in accounts controller...")
	}

	if c.Config == nil {
		panic("Missing Config in accounts controller...")
	}

	return c
}

func (a *AccountsController) WithLogger(logger Logger) *AccountsController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *AccountsController) Home(ctx router.Context) error {
	return ctx.Render(a.Views.Home, MergeTemplateData(ctx, router.ViewContext{}))
}

func (a *AccountsController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the remember me box was checked
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules. The identifier can be a username or an
// email address, so only presence is checked.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountsController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	session, err := a.Auther.Login(ctx, payload)
	if err != nil {
		errs["authentication"] = a.loginErrorMessage(err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, a.destinationPath(session.GetRole()))

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AccountsController) loginErrorMessage(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeAccountNotVerified {
		return richErr.Message
	}
	return ErrInvalidCredentials.Message
}

// destinationPath maps the resolved role to its post-login route.
func (a *AccountsController) destinationPath(role UserRole) string {
	if Destination(role) == DestinationAdminDashboard {
		return a.Routes.AdminDashboard
	}
	return a.Routes.Dashboard
}

func (a *AccountsController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect(a.Routes.Home, router.StatusSeeOther)
}

func (a *AccountsController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithLogger(a.Logger).
		WithMailer(a.Mailer).
		WithActivitySink(a.Activity).
		WithSkipVerification(a.SkipVerification).
		WithBaseURL(a.BaseURL).
		WithFromAddress(a.FromAddress)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	message := "Check your email for the verification link"
	if a.SkipVerification {
		message = "Account created, you can sign in now"
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) VerifyEmail(ctx router.Context) error {
	token := ctx.Param("token", "")

	var resp *VerifyEmailResponse
	req := VerifyEmailMessage{
		Token: token,
		OnResponse: func(r *VerifyEmailResponse) {
			resp = r
		},
	}

	verify := NewVerifyEmailHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	if err := verify.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("email verification error: %v", err)
		return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
			"verified": false,
			"invalid":  true,
			"error":    err.Error(),
		})
	}

	return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
		"verified":         true,
		"already_verified": resp != nil && resp.AlreadyVerified,
		"invalid":          false,
	})
}

func (a *AccountsController) ForgotPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ForgotPassword, router.ViewContext{
		"errors": nil,
		"sent":   false,
	})
}

// ForgotPasswordPayload holds the reset request form values
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AccountsController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ForgotPassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ForgotPassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RequestPasswordResetMessage{
		Email: payload.Email,
	}

	requestReset := NewRequestPasswordResetHandler(a.Repo).
		WithLogger(a.Logger).
		WithMailer(a.Mailer).
		WithActivitySink(a.Activity).
		WithBaseURL(a.BaseURL).
		WithFromAddress(a.FromAddress)

	if err := requestReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forgot password error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	// The confirmation never says whether the address had an account.
	return ctx.Render(a.Views.ForgotPassword, router.ViewContext{
		"errors": nil,
		"sent":   true,
	})
}

func (a *AccountsController) ResetPasswordForm(ctx router.Context) error {
	token := ctx.Param("token", "")

	record, err := a.Repo.VerificationTokens().GetByToken(ctx.Context(), token, KindPasswordReset)
	if err != nil || record.Consumed() {
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"invalid": true,
			"token":   token,
		})
	}

	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"invalid": false,
		"token":   token,
	})
}

// ResetPasswordPayload holds the new credential form values
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(MinPasswordLength, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) ResetPasswordExecute(ctx router.Context) error {
	token := ctx.Param("token", "")
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"invalid": false,
			"token":   token,
		})
	}

	// Form validation failures leave the token unspent so the link can be
	// retried.
	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"invalid":    false,
			"token":      token,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := ResetPasswordMessage{
		Token:           token,
		Password:        payload.Password,
		PasswordConfirm: payload.ConfirmPassword,
	}

	resetPassword := NewResetPasswordHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	if err := resetPassword.Execute(ctx.Context(), req); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			switch richErr.TextCode {
			case TextCodePasswordPolicy:
				return ctx.Render(a.Views.ResetPassword, router.ViewContext{
					"invalid":    false,
					"token":      token,
					"validation": map[string]string{"password": richErr.Message},
				})
			case TextCodeInvalidToken, TextCodeTokenAlreadyUsed:
				return ctx.Render(a.Views.ResetPassword, router.ViewContext{
					"invalid": true,
					"token":   token,
				})
			}
		}
		a.Logger.Error("reset password error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password updated, sign in with your new password",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) Dashboard(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Dashboard, MergeTemplateData(ctx, router.ViewContext{
		"record":   user,
		"is_admin": IsAdmin(user),
	}))
}

func (a *AccountsController) ProfileShow(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Profile, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": user,
	}))
}

// ProfileUpdatePayload holds the editable profile fields. Email, role, and
// verification state are not editable through this form.
type ProfileUpdatePayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Phone     string `form:"phone_number" json:"phone_number"`
	Photo     string `form:"photo" json:"photo"`
}

// Validate will validate the payload
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Photo, validation.Length(0, 500)),
	)
}

func (a *AccountsController) ProfileUpdate(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ProfileUpdatePayload)

	if err := ctx.Bind(payload); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Profile, router.ViewContext{
			"record": user,
		})
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Profile, router.ViewContext{
			"record":     user,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	updated, err := applyProfileUpdate(ctx.Context(), a.Repo, user, payload)
	if err != nil {
		a.Logger.Error("profile update error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Profile updated",
	}).Render(a.Views.Profile, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": updated,
	}))
}

// applyProfileUpdate persists the editable fields in a single transaction
// and reloads the record. Shared by the HTML and JSON surfaces so the two
// can never disagree on what is editable.
func applyProfileUpdate(ctx context.Context, repo RepositoryManager, user *User, payload *ProfileUpdatePayload) (*User, error) {
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &User{
			ID:        user.ID,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
		}

		if _, err := repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(user.ID.String())); err != nil {
			return err
		}

		profile, _, err := repo.Profiles().EnsureProfileTx(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		update := &Profile{
			ID:    profile.ID,
			Phone: NormalizePhone(payload.Phone),
			Photo: payload.Photo,
		}

		_, err = repo.Profiles().UpdateTx(ctx, tx, update, repository.UpdateByID(profile.ID.String()))
		return err
	})

	if err != nil {
		return nil, err
	}

	return repo.Users().GetByIdentifier(ctx, user.ID.String(), WithProfile())
}

// AdminGuard re-checks the admin predicate against the database on every
// request instead of trusting the role claim minted at login.
func (a *AccountsController) AdminGuard() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			user, err := a.currentUser(ctx)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			if !IsAdmin(user) {
				return flash.WithError(ctx, router.ViewContext{
					"error_message":  ErrAdminOnly.Message,
					"system_message": "Admin access required",
				}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
			}

			return next(ctx)
		}
	}
}

func (a *AccountsController) AdminDashboard(ctx router.Context) error {
	query := ctx.Query("q", "")

	users, err := a.Repo.Users().Search(ctx.Context(), query, WithProfile())
	if err != nil {
		a.Logger.Error("admin dashboard search error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.AdminDashboard, MergeTemplateData(ctx, router.ViewContext{
		"records": users,
		"query":   query,
	}))
}

func (a *AccountsController) currentUser(ctx router.Context) (*User, error) {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return nil, err
	}

	return a.Repo.Users().GetByIdentifier(ctx.Context(), session.GetUserID(), WithProfile())
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
