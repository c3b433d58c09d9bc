// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"codeberg.org/tourbook/tourbook/internal/config"
	"codeberg.org/tourbook/tourbook/internal/database"
	"codeberg.org/tourbook/tourbook/internal/i18n"
	"codeberg.org/tourbook/tourbook/internal/repository"
	"codeberg.org/tourbook/tourbook/internal/server"
	"codeberg.org/tourbook/tourbook/internal/services/auth"
	"codeberg.org/tourbook/tourbook/internal/services/email"
	"codeberg.org/tourbook/tourbook/internal/services/token"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func migrateCommand() *cli.Command {
	run := func(fn func(cfg *config.Config) error) cli.ActionFunc {
		return func(_ context.Context, cmd *cli.Command) error {
			cfg, err := config.NewFromCLI(cmd)
			if err != nil {
				return err
			}
			server.SetupLogger(cfg.Log.Level, cfg.Log.Format)
			return fn(cfg)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: run(func(cfg *config.Config) error {
					db, err := database.Open(cfg.Database.DSN)
					if err != nil {
						return err
					}
					defer db.Close()
					fmt.Println("database is up to date")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the last migration",
				Action: run(func(cfg *config.Config) error {
					return withDB(cfg, database.MigrateDown)
				}),
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: run(func(cfg *config.Config) error {
					return withDB(cfg, database.MigrateReset)
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: run(func(cfg *config.Config) error {
					db, err := database.Open(cfg.Database.DSN)
					if err != nil {
						return err
					}
					defer db.Close()
					version, err := database.MigrationVersion(db.DB, database.DialectFor(cfg.Database.DSN))
					if err != nil {
						return err
					}
					fmt.Printf("schema version %d\n", version)
					return nil
				}),
			},
		},
	}
}

func withDB(cfg *config.Config, fn func(db *sql.DB, dialect database.Dialect) error) error {
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db.DB, database.DialectFor(cfg.Database.DSN))
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create the first admin user or promote an existing user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Admin display name", Value: "Admin"},
			&cli.StringFlag{Name: "email", Usage: "Admin email address", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.NewFromCLI(cmd)
			if err != nil {
				return err
			}
			server.SetupLogger(cfg.Log.Level, cfg.Log.Format)
			if err := i18n.Init(); err != nil {
				return err
			}

			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repository.New(db)
			mailer, err := email.NewMailer(&cfg.SMTP)
			if err != nil {
				return err
			}
			svc := auth.NewService(repo, token.NewService(&cfg.JWT, false), mailer, cfg.Server.BaseURL)

			user, err := svc.EnsureAdmin(ctx, cmd.String("name"), cmd.String("email"), password)
			if errors.Is(err, auth.ErrAdminExists) {
				fmt.Println("an admin user already exists")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("admin %s (id %d) is ready\n", user.Email, user.ID)
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal and reads a plain line
// from piped input.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}
