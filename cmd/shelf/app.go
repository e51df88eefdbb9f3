package main

import (
	"context"
	"io"
	"strings"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"

	"github.com/morashelf/morashelf-core/internal/config"
	"github.com/morashelf/morashelf-core/internal/di"
	"github.com/morashelf/morashelf-core/internal/di/providers"
	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// app is what every subcommand action receives.
type app struct {
	shelf *providers.ShelfHandle
	cfg   *config.Config
	out   io.Writer
}

type actionFunc func(ctx context.Context, cmd *cli.Command, a *app) error

// withShelf builds the container from the global flags, hydrates the
// library, runs fn, then shuts everything down so pending writes land.
func withShelf(fn actionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		root := cmd.Root()
		injector := di.NewContainer(config.Flags{
			EnvFile:     root.String("env-file"),
			Environment: root.String("env"),
			LogLevel:    root.String("log-level"),
			Backend:     root.String("backend"),
			DataPath:    root.String("data-dir"),
			CatalogURL:  root.String("catalog-url"),
			AuthURL:     root.String("auth-url"),
		})
		defer injector.Shutdown()

		handle, err := di.Bootstrap(ctx, injector)
		if err != nil {
			return err
		}

		return fn(ctx, cmd, &app{
			shelf: handle,
			cfg:   do.MustInvoke[*config.Config](injector),
			out:   root.Writer,
		})
	}
}

// resolveBook turns a command argument into a book. Work keys are looked up
// in favorites and history first; anything else is searched in the catalog
// and the pick'th hit (1-based) is used.
func (a *app) resolveBook(ctx context.Context, ref string, pick int) (domain.Book, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Book{}, domainerrors.Validation("a book key or search query is required")
	}

	if strings.HasPrefix(ref, "/works/") {
		for _, list := range [][]domain.Book{a.shelf.Favorites(), a.shelf.RecentlyViewed()} {
			if i := domain.IndexOf(list, ref); i >= 0 {
				return list[i], nil
			}
		}
	}

	res, err := a.shelf.SearchBooks(ctx, ref, 0)
	if err != nil {
		return domain.Book{}, err
	}
	if strings.HasPrefix(ref, "/works/") {
		if i := domain.IndexOf(res.Books, ref); i >= 0 {
			return res.Books[i], nil
		}
	}
	if pick < 1 || pick > len(res.Books) {
		return domain.Book{}, domainerrors.NotFound("no matching book found for " + ref)
	}
	return res.Books[pick-1], nil
}
