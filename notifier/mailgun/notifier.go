// Package mailgun provides a Notifier that delivers onboarding email
// through Mailgun templates.
package mailgun

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	onboarding "github.com/goliatone/go-onboarding"
)

const sendTimeout = 30 * time.Second

// Config holds the Mailgun settings. BaseURL is the public site root
// used to build links embedded in the email.
type Config struct {
	Domain  string
	APIKey  string
	From    string
	BaseURL string

	// Template names; defaults cover a standard Mailgun setup.
	VerificationTemplate  string
	MagicLinkTemplate     string
	PasswordResetTemplate string
	ApplicationTemplate   string
}

// Notifier sends onboarding email through Mailgun.
type Notifier struct {
	mg     mailgun.Mailgun
	config Config
}

// New creates a notifier with template name defaults.
func New(cfg Config) (*Notifier, error) {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("mailgun domain, api key, and from address are required")
	}

	if cfg.VerificationTemplate == "" {
		cfg.VerificationTemplate = "onboarding-verification"
	}
	if cfg.MagicLinkTemplate == "" {
		cfg.MagicLinkTemplate = "onboarding-magic-link"
	}
	if cfg.PasswordResetTemplate == "" {
		cfg.PasswordResetTemplate = "onboarding-password-reset"
	}
	if cfg.ApplicationTemplate == "" {
		cfg.ApplicationTemplate = "onboarding-application-received"
	}

	return &Notifier{
		mg:     mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		config: cfg,
	}, nil
}

// SendVerification delivers the email verification link.
func (n *Notifier) SendVerification(ctx context.Context, email, token string) error {
	return n.send(ctx, email, "Verify your email", n.config.VerificationTemplate, map[string]string{
		"url": n.link("/verify-email", email, token),
	})
}

// SendMagicLink delivers the passwordless sign-in link.
func (n *Notifier) SendMagicLink(ctx context.Context, email, token string) error {
	return n.send(ctx, email, "Your sign-in link", n.config.MagicLinkTemplate, map[string]string{
		"url": n.link("/magic-link", email, token),
	})
}

// SendPasswordReset delivers the password reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, token string) error {
	return n.send(ctx, email, "Reset your password", n.config.PasswordResetTemplate, map[string]string{
		"url": n.link("/reset-password", email, token),
	})
}

// SendApplicationReceived confirms a pending application.
func (n *Notifier) SendApplicationReceived(ctx context.Context, email string) error {
	return n.send(ctx, email, "Application received", n.config.ApplicationTemplate, nil)
}

func (n *Notifier) send(ctx context.Context, recipient, subject, template string, variables map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	message := n.mg.NewMessage(n.config.From, subject, "")
	message.SetTemplate(template)

	if err := message.AddRecipient(recipient); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}

	for k, v := range variables {
		if err := message.AddVariable(k, v); err != nil {
			return fmt.Errorf("failed to add template variable %q: %w", k, err)
		}
	}

	if _, _, err := n.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}

	return nil
}

func (n *Notifier) link(pathSuffix, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	if token != "" {
		q.Set("token", token)
	}
	return n.config.BaseURL + pathSuffix + "?" + q.Encode()
}

var _ onboarding.Notifier = (*Notifier)(nil)
