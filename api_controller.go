package accounts

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// APIUserKey is the locals key under which RequireToken stores the
// authenticated user record.
var APIUserKey = "api_user"

// RegisterAPIRoutes mounts the JSON surface. Clients authenticate with the
// opaque key issued by /api/register or /api/login sent as an Authorization
// header, either "Token <key>" or "Bearer <key>".
func RegisterAPIRoutes[T any](app router.Router[T], opts ...APIControllerOption) {
	controller := NewAPIController(opts...)

	requireToken := controller.RequireToken()
	adminOnly := controller.AdminOnly()

	app.Post(controller.Routes.Register, controller.RegisterCreate).SetName("api.register.post")
	app.Post(controller.Routes.Login, controller.LoginCreate).SetName("api.sign-in.post")
	app.Post(controller.Routes.Logout, controller.LogoutCreate, requireToken).SetName("api.sign-out.post")

	app.Get(controller.Routes.Profile, controller.ProfileShow, requireToken).SetName("api.profile.get")
	app.Put(controller.Routes.Profile, controller.ProfileUpdate, requireToken).SetName("api.profile.put")

	app.Get(controller.Routes.Users, controller.UsersIndex, requireToken, adminOnly).
		SetName("api.users.list")
	app.Get(controller.Routes.Users+"/:id", controller.UsersShow, requireToken, adminOnly).
		SetName("api.users.show")
}

type APIControllerRoutes struct {
	Register string
	Login    string
	Logout   string
	Profile  string
	Users    string
}

type APIController struct {
	Logger           Logger
	Repo             RepositoryManager
	Provider         IdentityProvider
	Routes           *APIControllerRoutes
	Activity         ActivitySink
	Mailer           Mailer
	BaseURL          string
	FromAddress      string
	SkipVerification bool
	UserKey          string
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger:  defLogger{},
		UserKey: APIUserKey,
		Routes: &APIControllerRoutes{
			Register: "/api/register",
			Login:    "/api/login",
			Logout:   "/api/logout",
			Profile:  "/api/profile",
			Users:    "/api/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in API controller...")
	}

	if c.Provider == nil {
		panic("Missing IdentityProvider in API controller...")
	}

	c.Activity = normalizeActivitySink(c.Activity)

	return c
}

func (a *APIController) WithLogger(logger Logger) *APIController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// RequireToken resolves the Authorization header to a user record and stores
// it in the request locals. The key claim is opaque, every request hits the
// database so revocation takes effect immediately.
func (a *APIController) RequireToken() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			key := bearerKeyFromHeader(ctx.Header(router.HeaderAuthorization))
			if key == "" {
				return a.apiError(ctx, ErrMissingBearerToken)
			}

			token, err := a.Repo.APITokens().GetByKey(ctx.Context(), key)
			if err != nil {
				if goerrors.IsNotFound(err) {
					return a.apiError(ctx, ErrUnknownBearerToken)
				}
				return a.apiError(ctx, err)
			}

			user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), token.UserID.String(), WithProfile())
			if err != nil {
				if goerrors.IsNotFound(err) {
					return a.apiError(ctx, ErrUnknownBearerToken)
				}
				return a.apiError(ctx, err)
			}

			if !user.IsActive {
				return a.apiError(ctx, ErrAccountNotVerified)
			}

			ctx.Locals(a.UserKey, user)

			return next(ctx)
		}
	}
}

// AdminOnly rejects requests from non-admin users. Runs after RequireToken so
// the check reads the database record, not a cached claim.
func (a *APIController) AdminOnly() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			user, ok := RouterUser(ctx, a.UserKey)
			if !ok {
				return a.apiError(ctx, ErrMissingBearerToken)
			}

			if !IsAdmin(user) {
				return a.apiError(ctx, ErrAdminOnly)
			}

			return next(ctx)
		}
	}
}

func (a *APIController) RegisterCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.apiError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var resp *RegisterUserResponse
	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			resp = r
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithLogger(a.Logger).
		WithMailer(a.Mailer).
		WithActivitySink(a.Activity).
		WithSkipVerification(a.SkipVerification).
		WithBaseURL(a.BaseURL).
		WithFromAddress(a.FromAddress)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("api register error: %v", err)
		return a.apiError(ctx, err)
	}

	out := map[string]any{
		"verification_sent": resp != nil && resp.VerificationSent,
	}
	if resp != nil && resp.User != nil {
		out["user"] = NewUserResource(resp.User)

		// The key is handed out right away but stays inert until the
		// account activates; RequireToken checks is_active on every request.
		token, _, err := a.Repo.APITokens().GetOrCreate(ctx.Context(), resp.User.ID)
		if err != nil {
			a.Logger.Error("api register token error: %v", err)
			return a.apiError(ctx, err)
		}
		out["token"] = token.Key
	}

	return ctx.JSON(router.StatusCreated, out)
}

func (a *APIController) LoginCreate(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.apiError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	identity, err := a.Provider.VerifyIdentity(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		a.recordLogin(ctx.Context(), ActivityEventLoginFailure, payload.Identifier)
		return a.apiError(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), identity.ID(), WithProfile())
	if err != nil {
		return a.apiError(ctx, err)
	}

	token, _, err := a.Repo.APITokens().GetOrCreate(ctx.Context(), user.ID)
	if err != nil {
		return a.apiError(ctx, err)
	}

	a.recordLogin(ctx.Context(), ActivityEventLoginSuccess, identity.ID())

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token.Key,
		"user":  NewUserResource(user),
	})
}

func (a *APIController) LogoutCreate(ctx router.Context) error {
	user, ok := RouterUser(ctx, a.UserKey)
	if !ok {
		return a.apiError(ctx, ErrMissingBearerToken)
	}

	if err := a.Repo.APITokens().DeleteByUser(ctx.Context(), user.ID); err != nil {
		return a.apiError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *APIController) ProfileShow(ctx router.Context) error {
	user, ok := RouterUser(ctx, a.UserKey)
	if !ok {
		return a.apiError(ctx, ErrMissingBearerToken)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": NewUserResource(user),
	})
}

func (a *APIController) ProfileUpdate(ctx router.Context) error {
	user, ok := RouterUser(ctx, a.UserKey)
	if !ok {
		return a.apiError(ctx, ErrMissingBearerToken)
	}

	payload := new(ProfileUpdatePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.apiError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	updated, err := applyProfileUpdate(ctx.Context(), a.Repo, user, payload)
	if err != nil {
		a.Logger.Error("api profile update error: %v", err)
		return a.apiError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": NewUserResource(updated),
	})
}

func (a *APIController) UsersIndex(ctx router.Context) error {
	query := ctx.Query("q", "")

	users, err := a.Repo.Users().Search(ctx.Context(), query, WithProfile())
	if err != nil {
		return a.apiError(ctx, err)
	}

	records := make([]*UserResource, 0, len(users))
	for _, user := range users {
		records = append(records, NewUserResource(user))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": records,
		"query": query,
	})
}

func (a *APIController) UsersShow(ctx router.Context) error {
	id := ctx.Param("id", "")

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), id, WithProfile())
	if err != nil {
		return a.apiError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user": NewUserResource(user),
	})
}

func (a *APIController) recordLogin(ctx context.Context, event ActivityEventType, subject string) {
	err := a.Activity.Record(ctx, ActivityEvent{
		EventType: event,
		Actor: ActorRef{
			ID:   subject,
			Type: "api",
		},
		UserID:     subject,
		Metadata:   map[string]any{"surface": "api"},
		OccurredAt: time.Now(),
	})
	if err != nil {
		a.Logger.Warn("activity sink error: %v", err)
	}
}

func (a *APIController) apiError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}

	body := map[string]any{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return ctx.JSON(status, map[string]any{
		"error": body,
	})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}

func bearerKeyFromHeader(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}

	scheme := strings.ToLower(parts[0])
	if scheme != "token" && scheme != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// UserResource is the JSON shape for account records.
type UserResource struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	FirstName string           `json:"first_name,omitempty"`
	LastName  string           `json:"last_name,omitempty"`
	IsActive  bool             `json:"is_active"`
	IsStaff   bool             `json:"is_staff"`
	Role      UserRole         `json:"role"`
	Profile   *ProfileResource `json:"profile,omitempty"`
}

// ProfileResource is the JSON shape for profile records. Role and verified
// state are reported here but only editable through admin tooling.
type ProfileResource struct {
	Phone         string   `json:"phone_number,omitempty"`
	Photo         string   `json:"photo,omitempty"`
	Role          UserRole `json:"role"`
	EmailVerified bool     `json:"email_verified"`
}

func NewUserResource(user *User) *UserResource {
	if user == nil {
		return nil
	}

	profileRole := RoleUser
	resource := &UserResource{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsActive:  user.IsActive,
		IsStaff:   user.IsStaff,
	}

	if user.Profile != nil {
		user.Profile.EnsureRole()
		profileRole = user.Profile.Role
		resource.Profile = &ProfileResource{
			Phone:         user.Profile.Phone,
			Photo:         user.Profile.Photo,
			Role:          user.Profile.Role,
			EmailVerified: user.Profile.EmailVerified,
		}
	}

	resource.Role = ResolveRole(profileRole, user.IsStaff)

	return resource
}
