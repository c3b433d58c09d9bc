// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/appcontext"
	"codeberg.org/tourbook/tourbook/internal/apperror"
	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/flash"
	appmw "codeberg.org/tourbook/tourbook/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const rateLimitMessage = "Too many requests from this IP, please try again in an hour"

// webhookPath receives signed payment events whose body must reach the
// handler byte for byte.
const webhookPath = "/webhook-checkout"

func setupMiddleware(e *echo.Echo, cfg *config.Config, flashes *flash.Store) {
	e.Pre(appmw.StripTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Secure())
	e.Use(middleware.CORS())
	e.Use(middleware.Gzip())
	e.Use(bodyLimit(cfg.Server.MaxBodySize))
	e.Use(skipWebhook(appmw.SanitizeJSON()))
	e.Use(appmw.ParameterPollution(appmw.DefaultHPPWhitelist...))
	e.Use(photoCacheHeaders(cfg.Storage.PublicURL))
	e.Use(appmw.Locale())
	e.Use(appcontext.Middleware())
	e.Use(flashes.Middleware())
}

// bodyLimit caps JSON and form bodies. Multipart photo uploads are
// bounded by the photo size limit instead.
func bodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: limit,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == webhookPath ||
				strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
		},
	})
}

func skipWebhook(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			if c.Request().URL.Path == webhookPath {
				return next(c)
			}
			return wrapped(c)
		}
	}
}

// rateLimiter allows cfg.Requests per client IP and window.
func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	window := cfg.Window
	if window <= 0 {
		window = time.Hour
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(cfg.Requests) / window.Seconds()),
		Burst:     cfg.Requests,
		ExpiresIn: window,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(_ echo.Context) bool { return cfg.Requests <= 0 },
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return apperror.Wrap(apperror.KindForbidden, http.StatusForbidden, "Could not identify client", err)
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			slog.Warn("rate_limited", "ip", identifier, "uri", c.Request().RequestURI)
			return apperror.TooManyRequests(rateLimitMessage)
		},
	})
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}

			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				} else {
					level = slog.LevelWarn
				}
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// photoCacheHeaders lets clients cache user photos; file names change
// on every upload.
func photoCacheHeaders(prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(prefix, "/") && strings.HasPrefix(c.Request().URL.Path, prefix+"/") {
				c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			return next(c)
		}
	}
}
