package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/morashelf/morashelf-core/internal/catalog"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

var pickFlag = &cli.IntFlag{
	Name:  "pick",
	Usage: "Which search hit to use when the argument is a query (1-based)",
	Value: 1,
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum results (default from config)"},
		},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				query = a.cfg.Catalog.DefaultQuery
			}
			res, err := a.shelf.SearchBooks(ctx, query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			printBooks(a.out, res.Books, a.shelf.IsFavorite)
			return nil
		}),
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Search your favorites, history and notes offline",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 20},
		},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			hits, err := a.shelf.SearchLibrary(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(a.out, "Nothing on your shelf matches.")
				return nil
			}
			printHits(a.out, hits)
			return nil
		}),
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Show a book and add it to your history",
		ArgsUsage: "<work key | query>",
		Flags:     []cli.Flag{pickFlag},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			book, err := a.resolveBook(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("pick")))
			if err != nil {
				return err
			}
			if err := a.shelf.RecordRecentlyViewed(book); err != nil {
				return err
			}
			cover, _ := a.shelf.CoverURL(book, catalog.CoverLarge)
			note, _ := a.shelf.Note(book.Key)
			printBookDetail(a.out, book, a.shelf.IsFavorite(book.Key), cover, note)
			return nil
		}),
	}
}

func favoriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Usage:     "Add a book to favorites, or remove it if already there",
		ArgsUsage: "<work key | query>",
		Flags:     []cli.Flag{pickFlag},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			book, err := a.resolveBook(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("pick")))
			if err != nil {
				return err
			}
			on, err := a.shelf.ToggleFavorite(book)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(a.out, "Added %q to favorites\n", book.DisplayTitle())
			} else {
				fmt.Fprintf(a.out, "Removed %q from favorites\n", book.DisplayTitle())
			}
			return nil
		}),
	}
}

func favoritesCommand() *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "List favorites",
		Action: withShelf(func(_ context.Context, _ *cli.Command, a *app) error {
			books := a.shelf.Favorites()
			if len(books) == 0 {
				fmt.Fprintln(a.out, "No favorites yet.")
				return nil
			}
			printBooks(a.out, books, nil)
			return nil
		}),
	}
}

func recentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recently viewed books",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "Show the full history instead of the preview"},
		},
		Action: withShelf(func(_ context.Context, cmd *cli.Command, a *app) error {
			books := a.shelf.RecentlyViewedPreview()
			if cmd.Bool("all") {
				books = a.shelf.RecentlyViewed()
			}
			if len(books) == 0 {
				fmt.Fprintln(a.out, "Nothing viewed yet.")
				return nil
			}
			printBooks(a.out, books, a.shelf.IsFavorite)
			return nil
		}),
	}
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Manage private notes",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set the note for a book",
				ArgsUsage: "<work key> <text>",
				Action: withShelf(func(_ context.Context, cmd *cli.Command, a *app) error {
					if cmd.NArg() < 2 {
						return domainerrors.Validation("usage: shelf note set <work key> <text>")
					}
					note, err := a.shelf.UpsertNote(cmd.Args().First(), strings.Join(cmd.Args().Tail(), " "))
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Saved note for %s at %s\n", note.BookKey, note.UpdatedAt.Local().Format("2006-01-02 15:04"))
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete the note for a book",
				ArgsUsage: "<work key>",
				Action: withShelf(func(_ context.Context, cmd *cli.Command, a *app) error {
					key := cmd.Args().First()
					if !a.shelf.DeleteNote(key) {
						fmt.Fprintf(a.out, "No note for %s\n", key)
						return nil
					}
					fmt.Fprintf(a.out, "Deleted note for %s\n", key)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List every note",
				Action: withShelf(func(_ context.Context, _ *cli.Command, a *app) error {
					printNotes(a.out, a.shelf.Notes())
					return nil
				}),
			},
		},
	}
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Suggest books by authors you already like",
		Action: withShelf(func(ctx context.Context, _ *cli.Command, a *app) error {
			res, err := a.shelf.GetRecommendations(ctx)
			if err != nil {
				if domainerrors.Is(err, domainerrors.ErrNoSignal) {
					fmt.Fprintln(a.out, "Favorite or view a few books first to get suggestions.")
					return nil
				}
				return err
			}
			if len(res.Books) == 0 {
				fmt.Fprintln(a.out, "No new suggestions right now.")
			} else {
				printBooks(a.out, res.Books, nil)
			}
			if len(res.FailedAuthors) > 0 {
				fmt.Fprintf(a.out, "Could not reach the catalog for: %s\n", strings.Join(res.FailedAuthors, ", "))
			}
			return nil
		}),
	}
}

func coverCommand() *cli.Command {
	return &cli.Command{
		Name:      "cover",
		Usage:     "Print the cover image URL for a book",
		ArgsUsage: "<work key | query>",
		Flags: []cli.Flag{
			pickFlag,
			&cli.StringFlag{Name: "size", Usage: "S, M or L", Value: "M"},
		},
		Action: withShelf(func(ctx context.Context, cmd *cli.Command, a *app) error {
			book, err := a.resolveBook(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("pick")))
			if err != nil {
				return err
			}
			url, ok := a.shelf.CoverURL(book, catalog.ParseCoverSize(cmd.String("size")))
			if !ok {
				fmt.Fprintf(a.out, "%q has no cover\n", book.DisplayTitle())
				return nil
			}
			fmt.Fprintln(a.out, url)
			return nil
		}),
	}
}
