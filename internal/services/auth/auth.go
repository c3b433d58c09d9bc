// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/email"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// ErrAdminExists is returned by EnsureAdmin when an admin is already present.
var ErrAdminExists = errors.New("an admin already exists")

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

type Service struct {
	repo              *repository.Repository
	tokens            TokenIssuer
	mailer            email.Mailer
	baseURL           string
	now               func() time.Time
	cost              int
	passwordValidator *PasswordValidator
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for reset expiry and password changes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the bcrypt cost for new hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(repo *repository.Repository, tokens TokenIssuer, mailer email.Mailer, baseURL string, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		tokens:            tokens,
		mailer:            mailer,
		baseURL:           strings.TrimSuffix(baseURL, "/"),
		now:               time.Now,
		cost:              bcrypt.DefaultCost,
		passwordValidator: DefaultPasswordValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// SignupParams holds the parameters for user registration
type SignupParams struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Signup creates a new account and sends the welcome email.
func (s *Service) Signup(ctx context.Context, p SignupParams) (*models.User, error) {
	user := &models.User{
		Name:  strings.TrimSpace(p.Name),
		Email: models.NormalizeEmail(p.Email),
		Role:  models.RoleUser,
	}
	if err := s.validate(user, p.Password, p.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := s.hash(p.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("signup_success", "user_id", user.ID, "email", user.Email)

	if err := s.mailer.Send(ctx, email.Welcome(ctx, user, s.baseURL+"/me")); err != nil {
		slog.Warn("welcome_email_failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// validate merges profile and password failures into one ValidationError.
func (s *Service) validate(user *models.User, password, confirm string) error {
	fields := map[string]string{}
	var ve *models.ValidationError
	if err := user.Validate(); errors.As(err, &ve) {
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	if err := s.passwordValidator.Validate(password, confirm, user.Name, user.Email); errors.As(err, &ve) {
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &models.ValidationError{Fields: fields}
}

// Login authenticates a user and returns the user if successful
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, error) {
	if emailAddr == "" || password == "" {
		return nil, apperror.BadRequest("Please provide email and password!")
	}
	emailAddr = models.NormalizeEmail(emailAddr)

	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", emailAddr, "reason", "user_not_found")
			return nil, apperror.IncorrectCredentials()
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", emailAddr, "reason", "invalid_password")
		return nil, apperror.IncorrectCredentials()
	}

	slog.Info("login_success", "user_id", user.ID, "email", emailAddr)
	return user, nil
}

// UpdatePassword changes the password of a user who knows the current one.
// It returns the reloaded user.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, current, password, confirm string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return nil, apperror.New(apperror.KindIncorrectCredentials, http.StatusUnauthorized, "Your current password is wrong.")
	}

	if err := s.setPassword(ctx, user, password, confirm); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, user.ID)
}

// RequestReset stores a hashed reset token on the user and emails the
// plaintext token. If the email cannot be sent the token is cleared again.
func (s *Service) RequestReset(ctx context.Context, emailAddr string) error {
	user, err := s.repo.GetUserByEmail(ctx, models.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.KindUserNotFound, http.StatusNotFound, "There is no user with that email address.")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	plaintext, hash, err := email.GenerateToken()
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordResetToken(ctx, user.ID, hash, s.now().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.baseURL, plaintext)
	if err := s.mailer.Send(ctx, email.PasswordReset(ctx, user, url)); err != nil {
		slog.Error("reset_email_failed", "user_id", user.ID, "error", err)
		if clearErr := s.repo.ClearPasswordResetToken(ctx, user.ID); clearErr != nil {
			slog.Error("reset_token_clear_failed", "user_id", user.ID, "error", clearErr)
		}
		return apperror.EmailDelivery(err)
	}

	slog.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword exchanges a reset token for a password change and returns
// the user together with a fresh session token.
func (s *Service) ResetPassword(ctx context.Context, plaintext, password, confirm string) (*models.User, string, error) {
	user, err := s.repo.GetUserByResetToken(ctx, email.HashToken(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperror.InvalidOrExpiredResetToken()
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	if user.PasswordResetExpires == nil || !user.PasswordResetExpires.After(s.now()) {
		return nil, "", apperror.InvalidOrExpiredResetToken()
	}

	if err := s.setPassword(ctx, user, password, confirm); err != nil {
		return nil, "", err
	}

	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	slog.Info("password_reset_success", "user_id", user.ID)
	return user, tok, nil
}

// setPassword validates, hashes and stores a new password. The change time
// is set one second in the past so a token issued right after stays valid.
func (s *Service) setPassword(ctx context.Context, user *models.User, password, confirm string) error {
	if err := s.passwordValidator.Validate(password, confirm, user.Name, user.Email); err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	changedAt := s.now().Add(-time.Second)
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hash, changedAt); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil
	return nil
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// EnsureAdmin ensures at least one admin exists, creating or promoting the
// given account if needed
func (s *Service) EnsureAdmin(ctx context.Context, name, emailAddr, password string) (*models.User, error) {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil, ErrAdminExists
	}

	existing, err := s.repo.GetUserByEmail(ctx, models.NormalizeEmail(emailAddr))
	switch {
	case err == nil:
		existing.Role = models.RoleAdmin
		if err := s.repo.UpdateUser(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &models.User{
		Name:  strings.TrimSpace(name),
		Email: models.NormalizeEmail(emailAddr),
		Role:  models.RoleAdmin,
	}
	if err := s.validate(user, password, password); err != nil {
		return nil, err
	}
	if user.PasswordHash, err = s.hash(password); err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, nil
}
