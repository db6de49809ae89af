package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"invitehub/internal/domain"
)

// InvitationEmailConfig carries the branding applied to every invitation email.
type InvitationEmailConfig struct {
	AppBaseURL   string
	CompanyName  string
	SupportEmail string
	BrandColor   string
}

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	cfg      InvitationEmailConfig
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, cfg InvitationEmailConfig) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, cfg: cfg}
}

// invitationTemplateData is what the "invitation" template renders against.
// AcceptURL embeds the raw token, so neither may ever be logged.
type invitationTemplateData struct {
	RecipientName string
	TenantName    string
	InviterName   string
	Message       string
	AcceptURL     string
	ExpiryDays    int
	CompanyName   string
	SupportEmail  string
	BrandColor    string
}

// SendInvitation sends an invitation email using the "invitation" template and the given data.
func (s *emailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("invitation email data is nil")
	}
	tmplData := &invitationTemplateData{
		RecipientName: data.RecipientName,
		TenantName:    data.TenantName,
		InviterName:   data.InviterName,
		Message:       data.Message,
		AcceptURL:     acceptURL(s.cfg.AppBaseURL, data.RawToken),
		ExpiryDays:    daysUntil(data.ExpiresAt),
		CompanyName:   s.cfg.CompanyName,
		SupportEmail:  s.cfg.SupportEmail,
		BrandColor:    s.cfg.BrandColor,
	}
	subject, htmlBody, textBody, err := s.renderer.Render("invitation", tmplData)
	if err != nil {
		return fmt.Errorf("failed to render invitation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	log.Printf("[EMAIL] Invitation sent to %s", data.Email)
	return nil
}

func acceptURL(baseURL, rawToken string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(rawToken))
}

// daysUntil rounds the remaining time up to whole days.
func daysUntil(t time.Time) int {
	d := time.Until(t)
	if d <= 0 {
		return 0
	}
	days := int((d + 24*time.Hour - 1) / (24 * time.Hour))
	return days
}
