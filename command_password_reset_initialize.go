package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "user.password_reset.request" }

type RequestPasswordResetResponse struct {
	Token *VerificationToken
	Sent  bool
}

// RequestPasswordResetHandler issues a reset token and emails the link. The
// handler reports success whether or not the email maps to an account, so the
// endpoint cannot be used to probe for registered addresses.
type RequestPasswordResetHandler struct {
	repo        RepositoryManager
	mailer      Mailer
	activity    ActivitySink
	logger      Logger
	baseURL     string
	fromAddress string
}

// NewRequestPasswordResetHandler creates a handler with sane defaults.
func NewRequestPasswordResetHandler(repo RepositoryManager) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		mailer:   NewLogMailer(defLogger{}),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the transport used for the reset email.
func (h *RequestPasswordResetHandler) WithMailer(mailer Mailer) *RequestPasswordResetHandler {
	h.mailer = normalizeMailer(mailer, h.logger)
	return h
}

// WithActivitySink sets the sink used to emit reset request events.
func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithBaseURL sets the public base URL used to build emailed links.
func (h *RequestPasswordResetHandler) WithBaseURL(baseURL string) *RequestPasswordResetHandler {
	h.baseURL = strings.TrimRight(baseURL, "/")
	return h
}

// WithFromAddress sets the sender for outgoing email.
func (h *RequestPasswordResetHandler) WithFromAddress(from string) *RequestPasswordResetHandler {
	h.fromAddress = from
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	resp := &RequestPasswordResetResponse{}
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// Unknown address. Report success anyway.
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		profile, _, err := h.repo.Profiles().EnsureProfileTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve profile for password reset")
		}

		token, err := h.repo.VerificationTokens().IssueTx(ctx, tx, user, profile, KindPasswordReset)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue password reset token")
		}

		resp.Token = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if resp.Token != nil {
		// A delivery failure is logged, not returned. Surfacing it would
		// reveal which addresses have accounts.
		if err := h.sendResetEmail(ctx, user, resp.Token); err != nil {
			h.logger.Error("password reset email delivery failed: %v", err)
		} else {
			resp.Sent = true
		}

		h.recordActivity(ctx, user)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestPasswordResetHandler) sendResetEmail(ctx context.Context, user *User, token *VerificationToken) error {
	link := fmt.Sprintf("%s/auth/reset-password/%s", h.baseURL, token.Token)

	msg := EmailMessage{
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Hi %s, choose a new password by visiting: %s", user.Username, link),
		From:    h.fromAddress,
		To:      []string{user.Email},
	}

	if err := normalizeMailer(h.mailer, h.logger).Send(ctx, msg); err != nil {
		return wrapDeliveryError(err)
	}

	return nil
}

func (h *RequestPasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
