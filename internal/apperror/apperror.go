// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package apperror defines the operational error taxonomy shared by the
// auth chain, services and the HTTP error handler.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindUnauthenticated       Kind = "unauthenticated"
	KindInvalidToken          Kind = "invalid_token"
	KindExpiredToken          Kind = "expired_token"
	KindUserNotFound          Kind = "user_not_found"
	KindStaleToken            Kind = "stale_token"
	KindForbidden             Kind = "forbidden"
	KindValidationFailed      Kind = "validation_failed"
	KindDuplicateField        Kind = "duplicate_field"
	KindMalformedIdentifier   Kind = "malformed_identifier"
	KindEmailDelivery         Kind = "email_delivery"
	KindInvalidOrExpiredToken Kind = "invalid_or_expired_reset_token"
	KindIncorrectCredentials  Kind = "incorrect_credentials"
	KindNotFound              Kind = "not_found"
	KindBadRequest            Kind = "bad_request"
	KindTooManyRequests       Kind = "too_many_requests"
	KindInternal              Kind = "internal"
)

// Error is an operational error with a client-facing message and status.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns "fail" for client errors and "error" for server errors.
func (e *Error) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

// IsOperational reports whether the message is safe to show to clients.
func (e *Error) IsOperational() bool {
	return e.Kind != KindInternal
}

// New creates an error of the given kind.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: status}
}

// Wrap attaches an underlying cause to a new error.
func Wrap(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: status, Err: err}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func Unauthenticated() *Error {
	return New(KindUnauthenticated, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
}

func InvalidToken(err error) *Error {
	return Wrap(KindInvalidToken, http.StatusUnauthorized, "Invalid token. Please log in again!", err)
}

func ExpiredToken(err error) *Error {
	return Wrap(KindExpiredToken, http.StatusUnauthorized, "Your token has expired! Please log in again.", err)
}

func UserNotFound() *Error {
	return New(KindUserNotFound, http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
}

func StaleToken() *Error {
	return New(KindStaleToken, http.StatusUnauthorized, "User recently changed password! Please log in again.")
}

func Forbidden() *Error {
	return New(KindForbidden, http.StatusForbidden, "You do not have permission to perform this action")
}

func IncorrectCredentials() *Error {
	return New(KindIncorrectCredentials, http.StatusUnauthorized, "Incorrect email or password")
}

func InvalidOrExpiredResetToken() *Error {
	return New(KindInvalidOrExpiredToken, http.StatusBadRequest, "Token is invalid or has expired")
}

func EmailDelivery(err error) *Error {
	return Wrap(KindEmailDelivery, http.StatusInternalServerError, "There was an error sending the email. Try again later!", err)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message)
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, http.StatusBadRequest, message)
}

func Validation(message string, err error) *Error {
	return Wrap(KindValidationFailed, http.StatusBadRequest, message, err)
}

func Duplicate(message string, err error) *Error {
	return Wrap(KindDuplicateField, http.StatusBadRequest, message, err)
}

func MalformedIdentifier(message string, err error) *Error {
	return Wrap(KindMalformedIdentifier, http.StatusBadRequest, message, err)
}

func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, http.StatusTooManyRequests, message)
}

// Internal wraps an unexpected failure. Its message is never shown in production.
func Internal(err error) *Error {
	return Wrap(KindInternal, http.StatusInternalServerError, "Something went wrong", err)
}
