package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// EmailMessage is the payload handed to a Mailer.
type EmailMessage struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer dispatches email synchronously. Failures surface as errors to the
// caller; nothing is retried here.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg EmailMessage) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, msg EmailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type logMailer struct {
	logger Logger
}

// NewLogMailer returns a Mailer that writes messages to the logger. Meant
// for development; production callers plug in a real transport.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return logMailer{logger: logger}
}

func (m logMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Info("sending email notification to=%v subject=%s", msg.To, msg.Subject)
	m.logger.Debug("email body: %s", msg.Body)
	return nil
}

func normalizeMailer(m Mailer, logger Logger) Mailer {
	if m == nil {
		return NewLogMailer(logger)
	}
	return m
}

func wrapDeliveryError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, ErrEmailDelivery.Category, ErrEmailDelivery.Message).
		WithTextCode(ErrEmailDelivery.TextCode).
		WithCode(ErrEmailDelivery.Code)
}
