// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/models"
)

// TokenLength is the number of random bytes for one-time tokens.
const TokenLength = 32

// Template names.
const (
	TemplateWelcome       = "welcome"
	TemplatePasswordReset = "passwordReset"
)

// ErrDelivery marks a message that could not be handed to the mail server.
var ErrDelivery = errors.New("email delivery failed")

// Message is a templated email to a single recipient.
type Message struct {
	To        string
	Template  string
	Subject   string
	FirstName string
	URL       string
}

// Mailer sends templated emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP sender, or a log sender when no SMTP host is set.
func NewMailer(cfg *config.SMTPConfig) (Mailer, error) {
	if cfg.Host == "" {
		slog.Warn("smtp_disabled", "reason", "no smtp host configured, emails are logged")
		return LogSender{}, nil
	}
	return NewSMTPSender(cfg)
}

// Welcome builds the message sent after sign-up.
func Welcome(ctx context.Context, user *models.User, url string) Message {
	return Message{
		To:        user.Email,
		Template:  TemplateWelcome,
		Subject:   i18n.T(ctx, "email_welcome_subject"),
		FirstName: user.FirstName(),
		URL:       url,
	}
}

// PasswordReset builds the message carrying a reset link.
func PasswordReset(ctx context.Context, user *models.User, url string) Message {
	return Message{
		To:        user.Email,
		Template:  TemplatePasswordReset,
		Subject:   i18n.T(ctx, "email_password_reset_subject"),
		FirstName: user.FirstName(),
		URL:       url,
	}
}

// GenerateToken generates a new one-time token.
// Returns the plaintext token and its SHA256 hash for storage.
func GenerateToken() (string, string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	return plaintext, HashToken(plaintext), nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

// Send implements Mailer.
func (LogSender) Send(_ context.Context, msg Message) error {
	if _, _, err := Render(msg); err != nil {
		return err
	}
	slog.Info("email_logged", "to", msg.To, "template", msg.Template, "subject", msg.Subject, "url", msg.URL)
	return nil
}

// Recorder keeps sent messages in memory. Err, when set, is returned from
// Send and nothing is recorded.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

// Send implements Mailer.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, r.Err)
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recently recorded message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}
