// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"context"

	"codeberg.org/tourbook/tourbook/internal/models"
	"github.com/labstack/echo/v4"
)

// Context keys for storing values in context.Context.
type (
	// User is the context key for the authenticated user.
	User struct{}
	// Flash is the context key for a one-shot alert message.
	Flash struct{}
)

// Context is a custom Echo context carrying the authenticated user.
type Context struct {
	echo.Context
	User *models.User // nil if not authenticated
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// Wrap returns the custom context for c, creating one if needed.
func Wrap(c echo.Context) *Context {
	if cc, ok := c.(*Context); ok {
		return cc
	}
	return &Context{Context: c, User: UserFrom(c.Request().Context())}
}

// WithUser stores the user in ctx for templates and services.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User{}, user)
}

// UserFrom returns the user stored in ctx, or nil.
func UserFrom(ctx context.Context) *models.User {
	if user, ok := ctx.Value(User{}).(*models.User); ok {
		return user
	}
	return nil
}

// SetUser attaches the user to both the echo context and the request context.
func SetUser(c echo.Context, user *models.User) {
	c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), user)))
	if cc, ok := c.(*Context); ok {
		cc.User = user
	}
}

// CurrentUser returns the user attached to the request, or nil.
func CurrentUser(c echo.Context) *models.User {
	if cc, ok := c.(*Context); ok && cc.User != nil {
		return cc.User
	}
	return UserFrom(c.Request().Context())
}

// WithFlash stores an alert message for rendering.
func WithFlash(ctx context.Context, message string) context.Context {
	return context.WithValue(ctx, Flash{}, message)
}

// FlashFrom returns the alert message stored in ctx.
func FlashFrom(ctx context.Context) string {
	msg, _ := ctx.Value(Flash{}).(string)
	return msg
}

// Middleware wraps every request in the custom Context.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(Wrap(c))
		}
	}
}
