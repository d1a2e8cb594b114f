// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements passwordless account flows: registration with
// email verification and magic-link sign-in. Both ride on the token
// service's single-use expiring tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"time"

	"github.com/millwardesque/parkbench/internal/models"
	"github.com/millwardesque/parkbench/internal/repository"
	"github.com/millwardesque/parkbench/internal/services/email"
	"github.com/millwardesque/parkbench/internal/services/token"
)

var (
	ErrUserExists   = errors.New("a user with this email already exists")
	ErrInvalidEmail = errors.New("invalid email format")
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken re-exports the token service's collapsed failure so
	// handlers only import this package.
	ErrInvalidToken = token.ErrInvalid
)

// Service wires the account flows together.
type Service struct {
	repo    *repository.Repository
	tokens  *token.Service
	mailer  *email.Service
	baseURL string
}

// NewService creates the auth service. baseURL is the public origin used to
// build links in outbound mail.
func NewService(repo *repository.Repository, tokens *token.Service, mailer *email.Service, baseURL string) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: baseURL,
	}
}

// Register creates a user with their initial visitors and sends the email
// verification link.
func (s *Service) Register(ctx context.Context, name, emailAddr string, visitorNames []string) (*models.User, error) {
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, ErrInvalidEmail
	}

	if _, err := s.repo.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	user, err := s.repo.CreateUserWithVisitors(ctx, name, emailAddr, visitorNames)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "visitors", len(visitorNames))

	if err := s.SendVerificationEmail(ctx, user); err != nil {
		// The account exists; the user can ask for another link.
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// SendVerificationEmail issues a fresh verification token and mails the
// confirmation link.
func (s *Service) SendVerificationEmail(ctx context.Context, user *models.User) error {
	raw, err := s.tokens.Issue(ctx, models.TokenPurposeEmailVerify, user.Email)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	link := s.link("/auth/verify", raw, user.Email)
	return s.mailer.Send(ctx, user.Email,
		"Verify your email for Parkbench",
		fmt.Sprintf(`Hello!<br><br>Click this link to verify your email and activate your Parkbench account: <a href="%s">Verify Email</a>. This link will expire in 24 hours.`, link),
		fmt.Sprintf("Hello!\n\nCopy and paste this URL into your browser to verify your email and activate your Parkbench account: %s\nThis link will expire in 24 hours.", link),
	)
}

// ResendVerification re-sends the verification link for an account that has
// not confirmed yet.
func (s *Service) ResendVerification(ctx context.Context, userID int64) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.Verified() {
		return nil
	}
	return s.SendVerificationEmail(ctx, user)
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, rawToken, emailAddr string) error {
	if err := s.tokens.Verify(ctx, models.TokenPurposeEmailVerify, rawToken, emailAddr); err != nil {
		return err
	}

	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.repo.MarkEmailVerified(ctx, user.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	slog.Info("email_verified", "user_id", user.ID)
	return nil
}

// SendMagicLink mails a sign-in link. It never reports whether the email
// belongs to an account: an unknown address is silently skipped, so the
// caller's response looks the same either way.
func (s *Service) SendMagicLink(ctx context.Context, emailAddr string) error {
	if _, err := s.repo.GetUserByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("magic_link_skipped", "reason", "unknown_email")
			return nil
		}
		return fmt.Errorf("look up user: %w", err)
	}

	raw, err := s.tokens.Issue(ctx, models.TokenPurposeMagicLink, emailAddr)
	if err != nil {
		return fmt.Errorf("issue magic link token: %w", err)
	}

	link := s.link("/auth/magic", raw, emailAddr)
	ttlMinutes := int(token.MagicLinkTTL.Minutes())
	return s.mailer.Send(ctx, emailAddr,
		"Your Parkbench Magic Link",
		fmt.Sprintf(`Hello!<br><br>Click this link to sign in to your Parkbench account: <a href="%s">Sign In</a>. This link will expire in %d minutes.`, link, ttlMinutes),
		fmt.Sprintf("Hello!\n\nCopy and paste this URL into your browser to sign in to your Parkbench account: %s\nThis link will expire in %d minutes.", link, ttlMinutes),
	)
}

// VerifyMagicLink consumes a sign-in token and returns the signed-in user.
func (s *Service) VerifyMagicLink(ctx context.Context, rawToken, emailAddr string) (*models.User, error) {
	if err := s.tokens.Verify(ctx, models.TokenPurposeMagicLink, rawToken, emailAddr); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	slog.Info("signin_success", "user_id", user.ID)
	return user, nil
}

func (s *Service) link(path, rawToken, emailAddr string) string {
	query := url.Values{}
	query.Set("token", rawToken)
	query.Set("email", emailAddr)
	return s.baseURL + path + "?" + query.Encode()
}
