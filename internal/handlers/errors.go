// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/models"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/templates"
	"github.com/labstack/echo/v4"
)

const genericMessage = "Something went wrong"

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Stack   []string     `json:"stack,omitempty"`
}

// ErrorDetail is only included in development.
type ErrorDetail struct {
	Kind       apperror.Kind `json:"kind"`
	StatusCode int           `json:"statusCode"`
	Raw        string        `json:"raw"`
}

// ErrorHandler is the single exit point for failed requests.
type ErrorHandler struct {
	production bool
}

// NewErrorHandler creates an error handler for the given environment.
func NewErrorHandler(production bool) *ErrorHandler {
	return &ErrorHandler{production: production}
}

// Normalize maps any error onto the operational error taxonomy.
// Unrecognized errors become Internal.
func Normalize(err error, c echo.Context) *apperror.Error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var (
		castErr       *models.CastError
		dupErr        *repository.DuplicateError
		validationErr *models.ValidationError
		httpErr       *echo.HTTPError
	)
	switch {
	case errors.As(err, &castErr):
		return apperror.MalformedIdentifier(fmt.Sprintf("Invalid %s: %s", castErr.Path, castErr.Value), err)
	case errors.As(err, &dupErr):
		return apperror.Duplicate(fmt.Sprintf("Duplicate field value: %s. Please use another value!", dupErr.Value), err)
	case errors.As(err, &validationErr):
		return apperror.Validation("Invalid input data. "+strings.Join(validationErr.Messages(), ". "), err)
	case errors.Is(err, token.ErrExpiredToken):
		return apperror.ExpiredToken(err)
	case errors.Is(err, token.ErrInvalidToken):
		return apperror.InvalidToken(err)
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Wrap(apperror.KindNotFound, http.StatusNotFound, "No document found with that ID", err)
	case errors.As(err, &httpErr):
		return fromHTTPError(httpErr, c)
	}
	return apperror.Internal(err)
}

func fromHTTPError(he *echo.HTTPError, c echo.Context) *apperror.Error {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}

	switch {
	case he == echo.ErrNotFound && c != nil:
		// route miss
		msg = fmt.Sprintf("Can't find %s on the server", c.Request().URL.RequestURI())
		return apperror.Wrap(apperror.KindNotFound, he.Code, msg, he)
	case he.Code == http.StatusNotFound:
		return apperror.Wrap(apperror.KindNotFound, he.Code, msg, he)
	case he.Code == http.StatusTooManyRequests:
		return apperror.Wrap(apperror.KindTooManyRequests, he.Code, msg, he)
	case he.Code >= 500:
		return apperror.Internal(he)
	}
	return apperror.Wrap(apperror.KindBadRequest, he.Code, msg, he)
}

// Handle implements echo.HTTPErrorHandler.
func (h *ErrorHandler) Handle(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr := Normalize(err, c)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if !appErr.IsOperational() {
		slog.Error("unhandled_error",
			"error", err.Error(),
			"method", c.Request().Method,
			"uri", c.Request().URL.RequestURI(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
	}

	var respErr error
	if isAPI(c) {
		respErr = c.JSON(status, h.body(appErr, err))
	} else {
		respErr = h.page(c, status, appErr)
	}
	if respErr != nil {
		slog.Error("error_response_failed", "error", respErr)
	}
}

func (h *ErrorHandler) body(appErr *apperror.Error, raw error) ErrorResponse {
	if h.production {
		if !appErr.IsOperational() {
			return ErrorResponse{Status: "error", Message: genericMessage}
		}
		return ErrorResponse{Status: appErr.Status(), Message: appErr.Message}
	}

	message := appErr.Message
	if !appErr.IsOperational() {
		message = raw.Error()
	}
	return ErrorResponse{
		Status:  appErr.Status(),
		Message: message,
		Error: &ErrorDetail{
			Kind:       appErr.Kind,
			StatusCode: appErr.StatusCode,
			Raw:        raw.Error(),
		},
		Stack: errorChain(raw),
	}
}

func (h *ErrorHandler) page(c echo.Context, status int, appErr *apperror.Error) error {
	message := appErr.Message
	if h.production && !appErr.IsOperational() {
		message = genericMessage
	}

	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	if err := Render(c, status, templates.Error("Something went wrong!", status, message)); err != nil {
		return c.String(status, message)
	}
	return nil
}

// errorChain lists the messages of err and every error it wraps.
func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, fmt.Sprintf("%T: %s", err, err.Error()))
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return chain
			}
			err = errs[0]
		default:
			return chain
		}
	}
	return chain
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api")
}
