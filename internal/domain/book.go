// Package domain contains the core entities of the MoraShelf reading companion.
package domain

import "strings"

// UntitledBook is shown for catalog records that carry no title.
const UntitledBook = "Untitled"

// Book is a catalog record projected down to the fields the library keeps.
// Books are values: once fetched they are never mutated locally.
type Book struct {
	Key              string   `json:"key"`
	Title            string   `json:"title,omitempty"`
	AuthorName       []string `json:"author_name,omitempty"`
	CoverI           *int     `json:"cover_i,omitempty"`
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
}

// DisplayTitle returns the title, or "Untitled" when the catalog sent none.
func (b Book) DisplayTitle() string {
	if strings.TrimSpace(b.Title) == "" {
		return UntitledBook
	}
	return b.Title
}

// Authors joins the author names for one-line display.
func (b Book) Authors() string {
	return strings.Join(b.AuthorName, ", ")
}

// Clone returns a deep copy so callers cannot reach into a store's snapshot.
func (b Book) Clone() Book {
	out := b
	if b.AuthorName != nil {
		out.AuthorName = append([]string(nil), b.AuthorName...)
	}
	if b.CoverI != nil {
		v := *b.CoverI
		out.CoverI = &v
	}
	if b.FirstPublishYear != nil {
		v := *b.FirstPublishYear
		out.FirstPublishYear = &v
	}
	return out
}

// CloneBooks deep-copies a book sequence. A nil input yields an empty slice.
func CloneBooks(books []Book) []Book {
	out := make([]Book, len(books))
	for i, b := range books {
		out[i] = b.Clone()
	}
	return out
}

// IndexOf returns the position of the book with the given key, or -1.
func IndexOf(books []Book, key string) int {
	for i, b := range books {
		if b.Key == key {
			return i
		}
	}
	return -1
}
