package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// MinPasswordLength is the floor enforced when a password is chosen through
// the reset flow or registration forms.
const MinPasswordLength = 8

type ResetPasswordMessage struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	OnResponse      func(resp *ResetPasswordResponse)
}

func (e ResetPasswordMessage) Type() string { return "user.password_reset.finalize" }

type ResetPasswordResponse struct {
	User *User
}

// ResetPasswordHandler spends a reset token and replaces the credential. The
// token is only claimed after the new password passes validation, so a user
// who fat-fingers the confirmation can retry with the same link.
type ResetPasswordHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewResetPasswordHandler creates a handler with sane defaults.
func NewResetPasswordHandler(repo RepositoryManager) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *ResetPasswordHandler) WithActivitySink(sink ActivitySink) *ResetPasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	resp := &ResetPasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().GetByTokenTx(ctx, tx, event.Token, KindPasswordReset)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset token")
		}

		if token.Consumed() {
			return ErrTokenAlreadyUsed
		}

		if err := ValidateNewPassword(event.Password, event.PasswordConfirm); err != nil {
			return err
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		// Claim after validation so a rejected password leaves the token
		// spendable. The conditional update loses the race to any concurrent
		// claimant.
		if _, err := h.repo.VerificationTokens().ClaimTx(ctx, tx, event.Token, KindPasswordReset); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrTokenAlreadyUsed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not claim password reset token")
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, token.UserID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, token.UserID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user after password reset")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.recordActivity(ctx, resp.User)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// ValidateNewPassword enforces the password rules shared by the reset and
// registration forms.
func ValidateNewPassword(password, confirm string) error {
	if len(password) < MinPasswordLength || password != confirm {
		return ErrPasswordPolicy
	}
	return nil
}

func (h *ResetPasswordHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
