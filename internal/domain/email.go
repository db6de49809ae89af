package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationEmailData holds data for the invitation email. RawToken is the
// one-time token embedded in the accept link; it must never be logged.
type InvitationEmailData struct {
	Email         string
	RecipientName string
	TenantName    string
	InviterName   string
	Message       string
	RawToken      string
	ExpiresAt     time.Time
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}
