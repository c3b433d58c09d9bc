// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

// Environments the application can run in.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// MinSecretLength is the minimum JWT secret length accepted in production.
const MinSecretLength = 32

var (
	configPath = "config.toml"
	configFile = altsrc.NewStringPtrSourcer(&configPath)
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Env       string
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	TLS       TLSConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Payment   PaymentConfig
}

type TLSConfig struct {
	Mode     string // auto, acme, selfsigned, manual, off
	CacheDir string // certificate cache (acme and selfsigned modes)
	Email    string // ACME email for Let's Encrypt
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize string // echo size notation, e.g. "10K"
	MaxPhotoMB  int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type JWTConfig struct { //nolint:govet // fieldalignment not critical
	Secret           string
	ExpiresIn        time.Duration
	CookieExpiryDays int
	CookieName       string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type StorageConfig struct {
	Backend     string // local, s3
	LocalDir    string
	PublicURL   string // URL prefix photos are served from
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

type PaymentConfig struct {
	Provider            string // local, stripe
	StripeSecretKey     string
	StripeWebhookSecret string
}

// IsProduction reports whether the application runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func NewFromCLI(cmd *cli.Command) (*Config, error) {
	cfg := &Config{
		Env: strings.ToLower(cmd.String("env")),
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: cmd.String("max-body-size"),
			MaxPhotoMB:  int(cmd.Int("max-photo-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CacheDir: cmd.String("tls-cache-dir"),
			Email:    cmd.String("tls-email"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		JWT: JWTConfig{
			Secret:           cmd.String("jwt-secret"),
			ExpiresIn:        cmd.Duration("jwt-expires-in"),
			CookieExpiryDays: int(cmd.Int("jwt-cookie-expires-in")),
			CookieName:       "jwt",
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		RateLimit: RateLimitConfig{
			Requests: int(cmd.Int("rate-limit")),
			Window:   cmd.Duration("rate-limit-window"),
		},
		Storage: StorageConfig{
			Backend:     cmd.String("storage-backend"),
			LocalDir:    cmd.String("storage-dir"),
			PublicURL:   cmd.String("storage-public-url"),
			S3Bucket:    cmd.String("s3-bucket"),
			S3Region:    cmd.String("s3-region"),
			S3Endpoint:  cmd.String("s3-endpoint"),
			S3AccessKey: cmd.String("s3-access-key"),
			S3SecretKey: cmd.String("s3-secret-key"),
		},
		Payment: PaymentConfig{
			Provider:            cmd.String("payment-provider"),
			StripeSecretKey:     cmd.String("stripe-secret-key"),
			StripeWebhookSecret: cmd.String("stripe-webhook-secret"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills in development-only defaults.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q (want %s or %s)", c.Env, EnvDevelopment, EnvProduction)
	}

	if c.JWT.ExpiresIn <= 0 {
		return errors.New("jwt-expires-in must be positive")
	}
	if c.JWT.CookieExpiryDays <= 0 {
		return errors.New("jwt-cookie-expires-in must be positive")
	}

	if c.JWT.Secret == "" && !c.IsProduction() {
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.JWT.Secret = secret
		slog.Warn("jwt_secret_generated", "reason", "no secret configured, sessions reset on restart")
	}
	if c.IsProduction() && len(c.JWT.Secret) < MinSecretLength {
		return fmt.Errorf("jwt-secret must be at least %d bytes in production", MinSecretLength)
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("s3-bucket is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Payment.Provider {
	case "", "local":
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			return errors.New("stripe-secret-key is required for the stripe payment provider")
		}
		if c.Payment.StripeWebhookSecret == "" {
			return errors.New("stripe-webhook-secret is required for the stripe payment provider")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, MinSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port
	mode := strings.ToLower(cfg.TLS.Mode)

	scheme := "http"
	if shouldUseTLS(mode, host) {
		scheme = "https"
	}

	// ACME mode always uses port 443
	if mode == "acme" {
		return fmt.Sprintf("https://%s", host)
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func shouldUseTLS(mode, host string) bool {
	switch mode {
	case "off":
		return false
	case "acme", "manual":
		return true
	default: // "auto" or empty
		return !IsLocalhost(host)
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasSuffix(host, ".localhost")
}

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.toml",
			Usage:       "Path to configuration file",
			Destination: &configPath,
			Sources:     cli.EnvVars("CONFIG"),
		},
		&cli.StringFlag{
			Name:    "env",
			Value:   EnvDevelopment,
			Usage:   "Environment (development, production)",
			Sources: source("NODE_ENV", "env"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   3000,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.StringFlag{
			Name:    "max-body-size",
			Value:   "10K",
			Usage:   "Maximum JSON/form request body size",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.IntFlag{
			Name:    "max-photo-size",
			Value:   2,
			Usage:   "Maximum user photo upload size in MB",
			Sources: source("MAX_PHOTO_SIZE", "server.max_photo_size"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/tourbook.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: source("DATABASE", "database.dsn"),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "off",
			Usage:   "TLS mode (auto, acme, selfsigned, manual, off)",
			Sources: source("TLS_MODE", "tls.mode"),
		},
		&cli.StringFlag{
			Name:    "tls-cache-dir",
			Value:   "./data/certs",
			Usage:   "Directory for ACME and self-signed certificates",
			Sources: source("TLS_CACHE_DIR", "tls.cache_dir"),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Email for ACME/Let's Encrypt registration",
			Sources: source("TLS_EMAIL", "tls.email"),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: source("TLS_CERT_FILE", "tls.cert_file"),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: source("TLS_KEY_FILE", "tls.key_file"),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret used to sign session tokens",
			Sources: source("JWT_SECRET", "jwt.secret"),
		},
		&cli.DurationFlag{
			Name:    "jwt-expires-in",
			Value:   90 * 24 * time.Hour,
			Usage:   "Session token lifetime",
			Sources: source("JWT_EXPIRES_IN", "jwt.expires_in"),
		},
		&cli.IntFlag{
			Name:    "jwt-cookie-expires-in",
			Value:   90,
			Usage:   "Session cookie lifetime in days",
			Sources: source("JWT_COOKIE_EXPIRES_IN", "jwt.cookie_expires_in"),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (mails are only logged when empty)",
			Sources: source("EMAIL_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: source("EMAIL_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("EMAIL_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("EMAIL_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "hello@tourbook.local",
			Usage:   "Sender address",
			Sources: source("EMAIL_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Tourbook",
			Usage:   "Sender display name",
			Sources: source("EMAIL_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: source("EMAIL_TLS", "smtp.tls"),
		},
		&cli.IntFlag{
			Name:    "rate-limit",
			Value:   100,
			Usage:   "Maximum API requests per IP and window",
			Sources: source("RATE_LIMIT", "rate_limit.requests"),
		},
		&cli.DurationFlag{
			Name:    "rate-limit-window",
			Value:   time.Hour,
			Usage:   "Rate limit window",
			Sources: source("RATE_LIMIT_WINDOW", "rate_limit.window"),
		},
		&cli.StringFlag{
			Name:    "storage-backend",
			Value:   "local",
			Usage:   "User photo storage (local, s3)",
			Sources: source("STORAGE_BACKEND", "storage.backend"),
		},
		&cli.StringFlag{
			Name:    "storage-dir",
			Value:   "./data/img/users",
			Usage:   "Directory for user photos (local backend)",
			Sources: source("STORAGE_DIR", "storage.dir"),
		},
		&cli.StringFlag{
			Name:    "storage-public-url",
			Value:   "/img/users",
			Usage:   "URL prefix user photos are served from",
			Sources: source("STORAGE_PUBLIC_URL", "storage.public_url"),
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "S3 bucket for user photos",
			Sources: source("S3_BUCKET", "storage.s3_bucket"),
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Value:   "us-east-1",
			Usage:   "S3 region",
			Sources: source("S3_REGION", "storage.s3_region"),
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "S3 endpoint for S3-compatible stores",
			Sources: source("S3_ENDPOINT", "storage.s3_endpoint"),
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Usage:   "S3 access key",
			Sources: source("S3_ACCESS_KEY", "storage.s3_access_key"),
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Usage:   "S3 secret key",
			Sources: source("S3_SECRET_KEY", "storage.s3_secret_key"),
		},
		&cli.StringFlag{
			Name:    "payment-provider",
			Value:   "local",
			Usage:   "Checkout provider (local, stripe)",
			Sources: source("PAYMENT_PROVIDER", "payment.provider"),
		},
		&cli.StringFlag{
			Name:    "stripe-secret-key",
			Usage:   "Stripe API secret key",
			Sources: source("STRIPE_SECRET_KEY", "payment.stripe_secret_key"),
		},
		&cli.StringFlag{
			Name:    "stripe-webhook-secret",
			Usage:   "Signing secret of the Stripe checkout webhook",
			Sources: source("STRIPE_WEBHOOK_SECRET", "payment.stripe_webhook_secret"),
		},
	}
}
