package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"invitehub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMailer implements domain.Mailer for tests.
type fakeMailer struct {
	to      string
	subject string
	html    string
	text    string
	err     error
}

func (f *fakeMailer) Send(to, subject, html, text string) error {
	if f.err != nil {
		return f.err
	}
	f.to, f.subject, f.html, f.text = to, subject, html, text
	return nil
}

// fakeRenderer implements domain.EmailTemplateRenderer for tests.
type fakeRenderer struct {
	lastTemplate string
	lastData     any
	err          error
}

func (f *fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	f.lastTemplate = templateName
	f.lastData = data
	return "subject", "<p>html</p>", "text", nil
}

func TestEmailService_SendInvitation(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	renderer := &fakeRenderer{}
	svc := NewEmailService(mailer, renderer, InvitationEmailConfig{
		AppBaseURL:   "https://app.example.com/",
		CompanyName:  "Acme",
		SupportEmail: "help@acme.com",
		BrandColor:   "#112233",
	})

	err := svc.SendInvitation(ctx, &domain.InvitationEmailData{
		Email:         "a@x.com",
		RecipientName: "Alice",
		TenantName:    "Tenant One",
		InviterName:   "Bob",
		RawToken:      "raw/token+value",
		ExpiresAt:     time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "invitation", renderer.lastTemplate)
	assert.Equal(t, "a@x.com", mailer.to)
	assert.Equal(t, "subject", mailer.subject)

	data, ok := renderer.lastData.(*invitationTemplateData)
	require.True(t, ok)
	assert.Equal(t, "https://app.example.com/accept-invitation?token=raw%2Ftoken%2Bvalue", data.AcceptURL)
	assert.Equal(t, 7, data.ExpiryDays)
	assert.Equal(t, "Acme", data.CompanyName)
}

func TestEmailService_SendInvitation_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil data", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{}, InvitationEmailConfig{})
		err := svc.SendInvitation(ctx, nil)
		require.Error(t, err)
	})

	t.Run("render failure", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{}, &fakeRenderer{err: errors.New("boom")}, InvitationEmailConfig{})
		err := svc.SendInvitation(ctx, &domain.InvitationEmailData{Email: "a@x.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "render")
	})

	t.Run("send failure", func(t *testing.T) {
		svc := NewEmailService(&fakeMailer{err: errors.New("smtp down")}, &fakeRenderer{}, InvitationEmailConfig{})
		err := svc.SendInvitation(ctx, &domain.InvitationEmailData{Email: "a@x.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "send")
	})
}

func TestAcceptURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		token string
		want  string
	}{
		{
			name:  "plain",
			base:  "http://localhost:3000",
			token: "abc123",
			want:  "http://localhost:3000/accept-invitation?token=abc123",
		},
		{
			name:  "trailing slash trimmed",
			base:  "https://app.example.com/",
			token: "abc",
			want:  "https://app.example.com/accept-invitation?token=abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptURL(tt.base, tt.token))
		})
	}
}
