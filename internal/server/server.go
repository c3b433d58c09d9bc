// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/database"
	"codeberg.org/tourbook/tourbook/internal/flash"
	"codeberg.org/tourbook/tourbook/internal/handlers"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	appmw "codeberg.org/tourbook/tourbook/internal/middleware"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/services/auth"
	"codeberg.org/tourbook/tourbook/internal/services/email"
	"codeberg.org/tourbook/tourbook/internal/services/payment"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"codeberg.org/tourbook/tourbook/internal/storage"
	"codeberg.org/tourbook/tourbook/internal/templates"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.NewFromCLI(cmd)
	if err != nil {
		return err
	}
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("server_starting",
		"env", cfg.Env,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("database_close_failed", "error", closeErr)
		}
	}()

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	e, err := New(ctx, cfg, repository.New(db))
	if err != nil {
		return err
	}
	return startWithGracefulShutdown(ctx, e, cfg)
}

// New wires services, middleware and routes into an Echo instance.
func New(ctx context.Context, cfg *config.Config, repo *repository.Repository) (*echo.Echo, error) {
	secure := cfg.IsProduction()

	mailer, err := email.NewMailer(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mail: %w", err)
	}
	photos, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to configure photo storage: %w", err)
	}
	templates.SetPhotoBase(cfg.Storage.PublicURL)

	tokens := token.NewService(&cfg.JWT, secure)
	flashes := flash.New(cfg.JWT.Secret, secure)
	h := handlers.New(handlers.Deps{
		Repo:          repo,
		Auth:          auth.NewService(repo, tokens, mailer, cfg.Server.BaseURL),
		Tokens:        tokens,
		Payments:      newPaymentProvider(cfg, repo),
		Photos:        photos,
		Flash:         flashes,
		BaseURL:       cfg.Server.BaseURL,
		MaxPhotoBytes: int64(cfg.Server.MaxPhotoMB) << 20,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.NewErrorHandler(cfg.IsProduction()).Handle

	setupMiddleware(e, cfg, flashes)
	setupRoutes(e, cfg, h, appmw.NewAuth(tokens, repo))
	return e, nil
}

func newPaymentProvider(cfg *config.Config, repo *repository.Repository) payment.Provider {
	if cfg.Payment.Provider == "stripe" {
		return payment.NewStripe(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret,
			cfg.Server.BaseURL+"/img/tours", repo)
	}
	return payment.NewLocal(repo)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)
	serve := func(start func() error) {
		go func() {
			slog.Info("server_running", "url", cfg.Server.BaseURL, "tls", tlsResult.Mode)
			if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	var redirect *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		serve(func() error { return e.Start(addr) })

	case TLSModeACME:
		serve(func() error { return startTLSServer(ctx, e, ":443", tlsResult.TLSConfig) })

		redirect = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http_redirect_active", "addr", redirect.Addr)
			if err := redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		serve(func() error { return startTLSServer(ctx, e, addr, tlsResult.TLSConfig) })
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		slog.Info("server_shutting_down")
	case err := <-errChan:
		slog.Error("server_error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
	if redirect != nil {
		if err := redirect.Shutdown(shutdownCtx); err != nil {
			slog.Error("redirect_shutdown_failed", "error", err)
		}
	}

	slog.Info("server_stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(ctx context.Context, e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.TLSServer.Serve(e.TLSListener)
}
