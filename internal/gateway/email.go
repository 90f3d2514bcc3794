package gateway

import (
	"context"
	"log"
)

// EmailSender delivers transactional email.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, to, name, link string) error
}

// ConsoleEmailSender writes the email to the application log instead of
// delivering it. Stands in for a real provider outside production.
type ConsoleEmailSender struct{}

func (ConsoleEmailSender) SendVerificationEmail(_ context.Context, to, name, link string) error {
	log.Printf("INFO: verification email to %s (%s): %s", to, name, link)
	return nil
}
