package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User             *User
	Profile          *Profile
	Token            *VerificationToken
	VerificationSent bool
}

// RegisterUserHandler creates the user with its profile in one transaction
// and emails the verification link once the transaction commits. New accounts
// stay inactive until the link is followed, unless the handler is configured
// to skip verification.
type RegisterUserHandler struct {
	repo             RepositoryManager
	mailer           Mailer
	activity         ActivitySink
	logger           Logger
	skipVerification bool
	baseURL          string
	fromAddress      string
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		mailer:   NewLogMailer(defLogger{}),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the transport used for the verification email.
func (h *RegisterUserHandler) WithMailer(mailer Mailer) *RegisterUserHandler {
	h.mailer = normalizeMailer(mailer, h.logger)
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithSkipVerification makes registration activate and verify the account
// immediately, without issuing a token or sending email.
func (h *RegisterUserHandler) WithSkipVerification(skip bool) *RegisterUserHandler {
	h.skipVerification = skip
	return h
}

// WithBaseURL sets the public base URL used to build emailed links.
func (h *RegisterUserHandler) WithBaseURL(baseURL string) *RegisterUserHandler {
	h.baseURL = strings.TrimRight(baseURL, "/")
	return h
}

// WithFromAddress sets the sender for outgoing email.
func (h *RegisterUserHandler) WithFromAddress(from string) *RegisterUserHandler {
	h.fromAddress = from
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{}
		user.PasswordHash = hash
		user.Email = event.Email
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = getUsername(event.Username, event.Email)
		user.IsActive = h.skipVerification
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		profile := &Profile{
			UserID:        user.ID,
			Phone:         NormalizePhone(event.Phone),
			EmailVerified: h.skipVerification,
		}

		if profile, err = h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user profile")
		}

		resp.User = user
		resp.Profile = profile

		if h.skipVerification {
			return nil
		}

		token, err := h.repo.VerificationTokens().IssueTx(ctx, tx, user, profile, KindEmailVerification)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue verification token")
		}

		resp.Token = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.recordActivity(ctx, resp.User)

	// The account is committed at this point. A failed delivery surfaces to
	// the caller but does not roll the registration back.
	if resp.Token != nil {
		if err := h.sendVerificationEmail(ctx, resp.User, resp.Token); err != nil {
			return err
		}
		resp.VerificationSent = true
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterUserHandler) sendVerificationEmail(ctx context.Context, user *User, token *VerificationToken) error {
	link := fmt.Sprintf("%s/auth/verify-email/%s", h.baseURL, token.Token)

	msg := EmailMessage{
		Subject: "Verify your email address",
		Body:    fmt.Sprintf("Hi %s, confirm your account by visiting: %s", user.Username, link),
		From:    h.fromAddress,
		To:      []string{user.Email},
	}

	if err := normalizeMailer(h.mailer, h.logger).Send(ctx, msg); err != nil {
		return wrapDeliveryError(err)
	}

	return nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID: user.ID.String(),
		Metadata: map[string]any{
			"username": user.Username,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
