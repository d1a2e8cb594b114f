// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends outbound mail. The smtp provider delivers via go-mail;
// the console provider logs the message instead, for development.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/millwardesque/parkbench/internal/config"
)

// Service sends email through the configured provider.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates an email service. The smtp provider requires a host
// and from address; console needs nothing.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Provider == config.EmailProviderSMTP {
		if cfg.Host == "" {
			return nil, fmt.Errorf("SMTP host is required")
		}
		if cfg.From == "" {
			return nil, fmt.Errorf("SMTP from address is required")
		}
	}
	return &Service{cfg: cfg}, nil
}

// Send delivers a message with both HTML and plain-text bodies.
func (s *Service) Send(ctx context.Context, to, subject, html, text string) error {
	if s.cfg.Provider == config.EmailProviderConsole {
		slog.Info("email_console",
			"to", to,
			"subject", subject,
			"text", text,
		)
		return nil
	}
	return s.sendSMTP(ctx, to, subject, html, text)
}

func (s *Service) sendSMTP(ctx context.Context, to, subject, html, text string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
