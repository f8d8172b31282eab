package port

import "context"

// EmailSender defines the contract for sending run-report notifications.
type EmailSender interface {
	SendCopyReport(ctx context.Context, toEmail, subject, textBody string) error
}
