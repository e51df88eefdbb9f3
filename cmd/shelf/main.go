// Package main provides the shelf command, a terminal front end for the
// MoraShelf data layer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "shelf:", userMessage(err))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "shelf",
		Usage:  "Search books, keep favorites and notes, and get reading suggestions",
		Writer: os.Stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Path to a .env file with configuration overrides",
				Value:   ".env",
				Sources: cli.EnvVars("MORASHELF_ENV_FILE"),
			},
			&cli.StringFlag{Name: "env", Usage: "Environment: development, staging or production"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn or error"},
			&cli.StringFlag{Name: "backend", Usage: "Storage backend: badger, bolt, sqlite or memory"},
			&cli.StringFlag{Name: "data-dir", Usage: "Directory holding the on-device store"},
			&cli.StringFlag{Name: "catalog-url", Usage: "Book catalog base URL"},
			&cli.StringFlag{Name: "auth-url", Usage: "Auth API base URL"},
		},
		Commands: []*cli.Command{
			searchCommand(),
			findCommand(),
			viewCommand(),
			favoriteCommand(),
			favoritesCommand(),
			recentCommand(),
			noteCommand(),
			recommendCommand(),
			coverCommand(),
			registerCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
		},
	}
}

// userMessage strips wrapped causes from domain errors so the terminal shows
// the same text an alert would.
func userMessage(err error) string {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		if de.Code.RequiresAcknowledgement() {
			return fmt.Sprintf("%s (%s)", de.UserMessage(), de.Code)
		}
		return de.UserMessage()
	}
	return err.Error()
}
