package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/terraincognita07/easypeasy/internal/logger"
)

var ErrInvalidEmail = errors.New("invalid email")

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

func (email Email) validate() error {
	if strings.TrimSpace(email.To) == "" || strings.TrimSpace(email.Subject) == "" {
		return ErrInvalidEmail
	}
	return nil
}

type Notifier interface {
	Send(ctx context.Context, email Email) error
}

type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{log: log.With("component", "LogNotifier")}
}

func (notifier *LogNotifier) Send(_ context.Context, email Email) error {
	if err := email.validate(); err != nil {
		return err
	}
	notifier.log.Info("email not sent; no provider configured", "to", email.To, "subject", email.Subject)
	return nil
}
