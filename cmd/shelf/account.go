package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/morashelf/morashelf-core/internal/auth"
	"github.com/morashelf/morashelf-core/internal/avatar"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

var passwordFlag = &cli.StringFlag{
	Name:    "password",
	Aliases: []string{"p"},
	Usage:   "Account password",
	Sources: cli.EnvVars("MORASHELF_PASSWORD"),
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account on this device",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name"},
			&cli.StringFlag{Name: "email", Usage: "Email address"},
			passwordFlag,
		},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			user, err := a.shelf.Register(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s!\n", user.DisplayName())
			return nil
		}),
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Sign in with a username or email",
		ArgsUsage: "<username | email>",
		Flags:     []cli.Flag{passwordFlag},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			if cmd.NArg() < 1 {
				return domainerrors.Validation("usage: shelf login <username | email> --password <password>")
			}
			user, err := a.shelf.Login(ctx, cmd.Args().First(), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", user.DisplayName())
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out; favorites, history and notes are kept",
		Action: withShelf(func(ctx context.Context, _ *cli.Command, a *app) error {
			if err := a.shelf.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: withShelf(func(_ context.Context, _ *cli.Command, a *app) error {
			user := a.shelf.Session()
			if user == nil {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			badge := avatar.For(user)
			fmt.Fprintf(a.out, "[%s %s] %s", badge.Initial, badge.Color, user.DisplayName())
			if user.Email != "" {
				fmt.Fprintf(a.out, " <%s>", user.Email)
			}
			if auth.IsMockToken(user.Token) {
				fmt.Fprint(a.out, " (device account)")
			}
			fmt.Fprintln(a.out)
			return nil
		}),
	}
}
