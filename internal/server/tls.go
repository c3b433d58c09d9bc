// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode is the resolved way the server terminates TLS.
type TLSMode string

const (
	TLSModeOff        TLSMode = "off"
	TLSModeACME       TLSMode = "acme"
	TLSModeSelfSigned TLSMode = "selfsigned"
	TLSModeManual     TLSMode = "manual"
)

// certRenewBefore is how long before expiry a self-signed certificate is replaced.
const certRenewBefore = 30 * 24 * time.Hour

// TLSResult contains the resolved TLS configuration.
type TLSResult struct {
	TLSConfig   *tls.Config
	HTTPHandler http.Handler // ACME challenge and HTTPS redirect on :80
	Mode        TLSMode
}

// SetupTLS configures TLS based on the configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	mode := resolveTLSMode(cfg, isPortAvailable)
	slog.Info("tls_mode", "mode", mode, "host", cfg.Server.Host)

	switch mode {
	case TLSModeOff:
		return &TLSResult{Mode: TLSModeOff}, nil
	case TLSModeACME:
		return setupACME(cfg)
	case TLSModeSelfSigned:
		return setupSelfSigned(cfg)
	case TLSModeManual:
		return setupManual(cfg)
	default:
		return nil, fmt.Errorf("unknown TLS mode: %s", mode)
	}
}

// resolveTLSMode picks the explicit mode or detects one from the host.
func resolveTLSMode(cfg *config.Config, portFree func(int) bool) TLSMode {
	switch mode := strings.ToLower(cfg.TLS.Mode); mode {
	case "off":
		return TLSModeOff
	case "acme":
		return TLSModeACME
	case "selfsigned":
		return TLSModeSelfSigned
	case "manual":
		return TLSModeManual
	case "auto", "":
	default:
		slog.Warn("tls_mode_unknown", "mode", mode, "fallback", "auto")
	}

	host := cfg.Server.Host
	switch {
	case config.IsLocalhost(host):
		return TLSModeOff
	case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
		return TLSModeManual
	case net.ParseIP(host) == nil && cfg.TLS.Email != "" && portFree(80) && portFree(443):
		return TLSModeACME
	default:
		return TLSModeSelfSigned
	}
}

func isPortAvailable(port int) bool {
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// setupACME obtains certificates from Let's Encrypt via autocert.
func setupACME(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.Email == "" {
		return nil, errors.New("ACME mode requires tls-email to be set")
	}
	if cfg.Server.Port != 443 {
		slog.Warn("acme_port_ignored", "configured_port", cfg.Server.Port)
	}

	dir := filepath.Join(cfg.TLS.CacheDir, "acme")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cache directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(dir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}
	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &TLSResult{
		Mode:        TLSModeACME,
		TLSConfig:   tlsConfig,
		HTTPHandler: manager.HTTPHandler(nil),
	}, nil
}

// setupSelfSigned loads the cached self-signed certificate or creates one.
func setupSelfSigned(cfg *config.Config) (*TLSResult, error) {
	dir := filepath.Join(cfg.TLS.CacheDir, "selfsigned")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory: %w", err)
	}
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil || expiresWithin(&cert, certRenewBefore) {
		slog.Info("selfsigned_cert_generating", "dir", dir)
		if err := writeSelfSignedCert(cfg.Server.Host, certFile, keyFile, time.Now()); err != nil {
			return nil, err
		}
		if cert, err = tls.LoadX509KeyPair(certFile, keyFile); err != nil {
			return nil, fmt.Errorf("failed to load generated certificate: %w", err)
		}
	}

	slog.Warn("selfsigned_cert_in_use", "sha256", fingerprint(&cert))
	return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: tlsConfigFor(&cert)}, nil
}

// setupManual loads operator provided certificate files.
func setupManual(cfg *config.Config) (*TLSResult, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, errors.New("manual TLS mode requires both tls-cert-file and tls-key-file")
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	slog.Info("manual_cert_loaded", "cert", cfg.TLS.CertFile, "sha256", fingerprint(&cert))
	return &TLSResult{Mode: TLSModeManual, TLSConfig: tlsConfigFor(&cert)}, nil
}

// writeSelfSignedCert creates a one year ECDSA P-256 certificate for host
// and the loopback names.
func writeSelfSignedCert(host, certFile, keyFile string, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"Tourbook"}, CommonName: host},
		NotBefore:             now,
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}
	if ip := net.ParseIP(host); ip != nil {
		tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
	} else if host != "" {
		tmpl.DNSNames = append(tmpl.DNSNames, host)
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	return nil
}

func expiresWithin(cert *tls.Certificate, d time.Duration) bool {
	if len(cert.Certificate) == 0 {
		return true
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return true
	}
	return time.Until(leaf.NotAfter) < d
}

func fingerprint(cert *tls.Certificate) string {
	if len(cert.Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cert.Certificate[0])
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func tlsConfigFor(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}
