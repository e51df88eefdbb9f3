package recommend

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// fakeCatalog returns canned books per author and records every call.
type fakeCatalog struct {
	mu     sync.Mutex
	calls  []string
	books  map[string][]domain.Book
	failed map[string]bool
}

func (f *fakeCatalog) SearchByAuthor(_ context.Context, author string, limit int) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, author)
	if f.failed[author] {
		return nil, domainerrors.CatalogUnavailable("catalog down")
	}
	books := f.books[author]
	return books[:min(len(books), limit)], nil
}

func byAuthor(author string, keys ...string) []domain.Book {
	out := make([]domain.Book, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Book{Key: k, Title: k, AuthorName: []string{author}})
	}
	return out
}

func TestRecommend_NoSignalWithoutCalls(t *testing.T) {
	cat := &fakeCatalog{}
	engine := NewEngine(cat, nil)

	res, err := engine.Recommend(context.Background(), nil, nil, 10)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domainerrors.ErrNoSignal)
	assert.Empty(t, cat.calls)

	// Books without authors carry no signal either.
	_, err = engine.Recommend(context.Background(), []domain.Book{{Key: "a"}}, nil, 10)
	assert.ErrorIs(t, err, domainerrors.ErrNoSignal)
	assert.Empty(t, cat.calls)
}

func TestRecommend_ExcludesKnownAndDuplicates(t *testing.T) {
	cat := &fakeCatalog{books: map[string][]domain.Book{
		"Le Guin": byAuthor("Le Guin", "fav1", "lg1", "lg2"),
		"Herbert": byAuthor("Herbert", "lg1", "recent1", "h1"),
	}}
	engine := NewEngine(cat, nil)

	favorites := byAuthor("Le Guin", "fav1")
	recent := byAuthor("Herbert", "recent1")

	res, err := engine.Recommend(context.Background(), favorites, recent, 10)
	require.NoError(t, err)

	var keys []string
	for _, b := range res.Books {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{"lg1", "lg2", "h1"}, keys)
	assert.Equal(t, []string{"Le Guin", "Herbert"}, cat.calls)
}

func TestRecommend_FirstFiveAuthorsOnly(t *testing.T) {
	cat := &fakeCatalog{books: map[string][]domain.Book{}}
	var favorites []domain.Book
	for i := range 8 {
		author := fmt.Sprintf("author%d", i)
		favorites = append(favorites, byAuthor(author, fmt.Sprintf("fav%d", i))...)
		cat.books[author] = byAuthor(author, fmt.Sprintf("rec%d", i))
	}

	res, err := NewEngine(cat, nil).Recommend(context.Background(), favorites, nil, 100)
	require.NoError(t, err)

	assert.Len(t, cat.calls, maxAuthors)
	assert.Equal(t, "author0", cat.calls[0])
	assert.Len(t, res.Books, maxAuthors)
}

func TestRecommend_StopsAtLimit(t *testing.T) {
	cat := &fakeCatalog{books: map[string][]domain.Book{
		"A": byAuthor("A", "a1", "a2", "a3", "a4", "a5"),
		"B": byAuthor("B", "b1"),
	}}
	favorites := []domain.Book{{Key: "x", AuthorName: []string{"A", "B"}}}

	res, err := NewEngine(cat, nil).Recommend(context.Background(), favorites, nil, 3)
	require.NoError(t, err)

	assert.Len(t, res.Books, 3)
	assert.Equal(t, []string{"A"}, cat.calls, "no further calls once the limit is met")
}

func TestRecommend_PartialFailure(t *testing.T) {
	cat := &fakeCatalog{
		books:  map[string][]domain.Book{"B": byAuthor("B", "b1", "b2")},
		failed: map[string]bool{"A": true},
	}
	favorites := []domain.Book{{Key: "x", AuthorName: []string{"A", "B"}}}

	res, err := NewEngine(cat, nil).Recommend(context.Background(), favorites, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.FailedAuthors)
	assert.Len(t, res.Books, 2)
}

func TestRecommend_AllAuthorsFail(t *testing.T) {
	cat := &fakeCatalog{failed: map[string]bool{"A": true}}
	favorites := []domain.Book{{Key: "x", AuthorName: []string{"A"}}}

	res, err := NewEngine(cat, nil).Recommend(context.Background(), favorites, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Books)
	assert.Equal(t, []string{"A"}, res.FailedAuthors)
}

func TestAuthors_DiscoveryOrder(t *testing.T) {
	favorites := []domain.Book{
		{Key: "1", AuthorName: []string{"B", "A"}},
		{Key: "2", AuthorName: []string{"A", " "}},
	}
	recent := []domain.Book{{Key: "3", AuthorName: []string{"C", "B"}}}

	assert.Equal(t, []string{"B", "A", "C"}, Authors(favorites, recent))
	assert.Empty(t, Authors(nil, nil))
}
