// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// envFile is loaded before flags are parsed. Variables already set in the
// environment take precedence. Flags are inherited by all subcommands.
const envFile = "config.env"

func main() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", envFile, err)
	}

	cmd := &cli.Command{
		Name:    "tourbook",
		Usage:   "Tour booking web application",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Action: server.Run,
			},
			migrateCommand(),
			createAdminCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
