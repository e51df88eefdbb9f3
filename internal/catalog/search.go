package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// SearchBooks runs a free-text catalog search and returns at most limit books.
// A response without results yields an empty slice, not an error.
func (c *Client) SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.Validation("search query cannot be empty")
	}
	return c.search(ctx, "q", query, limit)
}

// SearchByAuthor returns at most limit books written by author.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]domain.Book, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, domainerrors.Validation("author cannot be empty")
	}
	return c.search(ctx, "author", author, limit)
}

func (c *Client) search(ctx context.Context, param, value string, limit int) ([]domain.Book, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set(param, value)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, "/search.json", params)
	if err != nil {
		return nil, err
	}

	books, err := parseDocs(body, limit)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("catalog search results",
		param, value,
		"count", len(books),
	)

	return books, nil
}

// parseDocs projects the docs array of a search response onto domain.Book.
// Docs without a string key are skipped; fields of the wrong type are dropped.
func parseDocs(body []byte, limit int) ([]domain.Book, error) {
	if !gjson.ValidBytes(body) {
		return nil, domainerrors.CatalogUnavailable("The book catalog returned an unreadable response")
	}

	books := make([]domain.Book, 0)
	docs := gjson.GetBytes(body, "docs")
	if !docs.IsArray() {
		return books, nil
	}

	seen := make(map[string]struct{})
	docs.ForEach(func(_, doc gjson.Result) bool {
		book, ok := projectDoc(doc)
		if !ok {
			return true
		}
		if _, dup := seen[book.Key]; dup {
			return true
		}
		seen[book.Key] = struct{}{}
		books = append(books, book)
		return len(books) < limit
	})

	return books, nil
}

func projectDoc(doc gjson.Result) (domain.Book, bool) {
	if !doc.IsObject() {
		return domain.Book{}, false
	}

	key := doc.Get("key")
	if key.Type != gjson.String || strings.TrimSpace(key.String()) == "" {
		return domain.Book{}, false
	}

	book := domain.Book{Key: key.String()}

	if title := doc.Get("title"); title.Type == gjson.String {
		book.Title = title.String()
	}

	if authors := doc.Get("author_name"); authors.IsArray() {
		authors.ForEach(func(_, a gjson.Result) bool {
			if a.Type == gjson.String && a.String() != "" {
				book.AuthorName = append(book.AuthorName, a.String())
			}
			return true
		})
	}

	book.CoverI = intField(doc, "cover_i")
	book.FirstPublishYear = intField(doc, "first_publish_year")

	return book, true
}

func intField(doc gjson.Result, path string) *int {
	v := doc.Get(path)
	if v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	if float64(n) != v.Float() {
		return nil
	}
	return &n
}
