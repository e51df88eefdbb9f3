package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/morashelf/morashelf-core/internal/domain"
	"github.com/morashelf/morashelf-core/internal/index"
)

func printBooks(w io.Writer, books []domain.Book, isFavorite func(string) bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, b := range books {
		mark := " "
		if isFavorite != nil && isFavorite(b.Key) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%2d.%s\t%s\t%s\t%s\t%s\n", i+1, mark, b.DisplayTitle(), b.Authors(), year(b), b.Key)
	}
	tw.Flush()
}

func printBookDetail(w io.Writer, b domain.Book, favorite bool, coverURL string, note domain.Note) {
	fmt.Fprintln(w, b.DisplayTitle())
	if authors := b.Authors(); authors != "" {
		fmt.Fprintf(w, "  by %s\n", authors)
	}
	if y := year(b); y != "" {
		fmt.Fprintf(w, "  first published %s\n", y)
	}
	fmt.Fprintf(w, "  key: %s\n", b.Key)
	if coverURL != "" {
		fmt.Fprintf(w, "  cover: %s\n", coverURL)
	}
	if favorite {
		fmt.Fprintln(w, "  * in your favorites")
	}
	if note.Text != "" {
		fmt.Fprintf(w, "  note: %s\n", note.Text)
	}
}

func printNotes(w io.Writer, notes map[string]domain.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes yet.")
		return
	}
	keys := make([]string, 0, len(notes))
	for k := range notes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		n := notes[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, n.UpdatedAt.Local().Format("2006-01-02"), n.Text)
	}
	tw.Flush()
}

func printHits(w io.Writer, hits []index.Hit) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = domain.UntitledBook
		}
		fmt.Fprintf(tw, "%2d.\t%s\t%s\t[%s]\t%s\n", i+1, title, h.Author, strings.Join(h.Shelves, ", "), h.Key)
		if h.Note != "" {
			fmt.Fprintf(tw, "\t  note: %s\t\t\t\n", h.Note)
		}
	}
	tw.Flush()
}

func year(b domain.Book) string {
	if b.FirstPublishYear == nil {
		return ""
	}
	return strconv.Itoa(*b.FirstPublishYear)
}
