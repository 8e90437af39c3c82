package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailResponse struct {
	User            *User
	Profile         *Profile
	AlreadyVerified bool
}

// VerifyEmailHandler spends an email verification token: the profile is
// marked verified and the user activated in the same transaction as the
// claim. Replaying a spent token reports AlreadyVerified instead of failing,
// so a re-clicked link reads as good news.
type VerifyEmailHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewVerifyEmailHandler creates a handler with sane defaults.
func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	resp := &VerifyEmailResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().ClaimTx(ctx, tx, event.Token, KindEmailVerification)
		if err != nil {
			if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not claim verification token")
			}

			// Not claimable: either the token was already spent or it never
			// existed. Only the former is reported as a success.
			spent, lerr := h.repo.VerificationTokens().GetByTokenTx(ctx, tx, event.Token, KindEmailVerification)
			if lerr != nil {
				if repository.IsRecordNotFound(lerr) {
					return ErrInvalidToken
				}
				return goerrors.Wrap(lerr, goerrors.CategoryInternal, "could not look up verification token")
			}

			resp.AlreadyVerified = true
			if user, uerr := h.repo.Users().GetByIdentifierTx(ctx, tx, spent.UserID.String()); uerr == nil {
				resp.User = user
			}
			return nil
		}

		user, err := h.repo.Users().ActivateTx(ctx, tx, token.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not activate user")
		}

		profile, err := h.repo.Profiles().MarkVerifiedTx(ctx, tx, token.ProfileID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not mark profile as verified")
		}

		resp.User = user
		resp.Profile = profile
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if !resp.AlreadyVerified {
		h.recordActivity(ctx, resp.User)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email verification: %v", err)
	}
}
