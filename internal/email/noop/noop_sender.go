package noop

import (
	"context"

	"github.com/sirupsen/logrus"

	"qbridge/internal/port"
)

type noopSender struct {
	log *logrus.Logger
}

// NewNoopSender creates a no-op EmailSender that logs report bodies instead
// of sending them. Used when no email provider is configured.
func NewNoopSender(log *logrus.Logger) port.EmailSender {
	return &noopSender{log: log}
}

func (s *noopSender) SendCopyReport(_ context.Context, toEmail, subject, textBody string) error {
	s.log.WithFields(logrus.Fields{
		"to":      toEmail,
		"subject": subject,
	}).Info("noop email: " + textBody)
	return nil
}
