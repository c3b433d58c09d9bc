// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies signed session tokens and builds the
// cookie that carries them.
package token

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/tourbook/tourbook/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// LoggedOutValue replaces the session token on logout.
const LoggedOutValue = "loggedout"

// logoutCookieTTL keeps the overwritten cookie around briefly.
const logoutCookieTTL = 10 * time.Second

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts.
type Identity struct {
	UserID   int64
	IssuedAt time.Time
}

// Service signs and verifies session tokens.
type Service struct {
	secret       []byte
	expiresIn    time.Duration
	cookieDays   int
	cookieName   string
	secureCookie bool
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service. secureCookie marks issued cookies Secure.
func NewService(cfg *config.JWTConfig, secureCookie bool, opts ...Option) *Service {
	name := cfg.CookieName
	if name == "" {
		name = "jwt"
	}
	s := &Service{
		secret:       []byte(cfg.Secret),
		expiresIn:    cfg.ExpiresIn,
		cookieDays:   cfg.CookieExpiryDays,
		cookieName:   name,
		secureCookie: secureCookie,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CookieName returns the name of the session cookie.
func (s *Service) CookieName() string {
	return s.cookieName
}

// Issue signs a token for userID.
func (s *Service) Issue(userID int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.UserID <= 0 || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return &Identity{UserID: claims.UserID, IssuedAt: claims.IssuedAt.Time}, nil
}

// CookieExpiry returns the expiry of a cookie issued now.
func (s *Service) CookieExpiry() time.Time {
	return s.now().Add(time.Duration(s.cookieDays) * 24 * time.Hour)
}

// Cookie wraps a signed token in the session cookie.
func (s *Service) Cookie(tokenString string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  s.CookieExpiry(),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// LogoutCookie overwrites the session cookie with a short-lived placeholder.
func (s *Service) LogoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    LoggedOutValue,
		Path:     "/",
		Expires:  s.now().Add(logoutCookieTTL),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
