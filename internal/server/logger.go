// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// SetupLogger configures the global slog logger. The text format is
// colored for terminals; json is meant for log collectors.
func SetupLogger(level, format string) {
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, level, format)))
}

func newLogHandler(w io.Writer, level, format string) slog.Handler {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	}
	return tint.NewHandler(w, &tint.Options{Level: logLevel})
}
