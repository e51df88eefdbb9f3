package shelf

import (
	"context"

	"github.com/morashelf/morashelf-core/internal/catalog"
	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/index"
	"github.com/morashelf/morashelf-core/internal/recommend"
)

// SearchResult is the outcome of one search. Stale is set when a newer
// search was issued before this one returned; stale results are handed back
// to their caller but never published.
type SearchResult struct {
	Seq   uint64
	Query string
	Books []domain.Book
	Stale bool
}

// SearchBooks queries the catalog. Each call is tagged with a sequence
// number and only the most recently issued search may update LastSearch or
// publish events, whatever order responses arrive in.
func (s *Shelf) SearchBooks(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	seq := s.searchSeq.Add(1)

	books, err := s.catalog.SearchBooks(ctx, query, limit)

	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	latest := seq == s.searchSeq.Load()

	if err != nil {
		if latest {
			s.emit(events.NewSearchFailedEvent(seq, query, err))
		}
		return nil, err
	}

	res := &SearchResult{Seq: seq, Query: query, Books: books, Stale: !latest}
	if !latest {
		s.logger.Debug("discarding superseded search", "query", query, "seq", seq)
		return res, nil
	}

	s.lastSearch = &SearchResult{Seq: seq, Query: query, Books: domain.CloneBooks(books)}
	s.emit(events.NewSearchCompletedEvent(seq, query, domain.CloneBooks(books)))
	return res, nil
}

// LastSearch returns the result of the latest applied search, or nil.
func (s *Shelf) LastSearch() *SearchResult {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	if s.lastSearch == nil {
		return nil
	}
	out := *s.lastSearch
	out.Books = domain.CloneBooks(out.Books)
	return &out
}

// GetRecommendations suggests books by authors the reader already likes.
func (s *Shelf) GetRecommendations(ctx context.Context) (*recommend.Result, error) {
	res, err := s.recommender.Recommend(ctx, s.favorites.Items(), s.recent.Items(), s.recommendLimit)
	if err != nil {
		return nil, err
	}
	s.emit(events.NewRecommendationsEvent(domain.CloneBooks(res.Books), res.FailedAuthors))
	return res, nil
}

// Login authenticates and makes the result the active session.
func (s *Shelf) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	user, err := s.auth.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if err := s.session.Set(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("signed in", "user_id", user.ID)
	return s.session.Current(), nil
}

// Register creates an account and makes it the active session.
func (s *Shelf) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	user, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.session.Set(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("registered", "user_id", user.ID)
	return s.session.Current(), nil
}

// Logout ends the active session. Favorites, history and notes stay.
func (s *Shelf) Logout(ctx context.Context) error {
	return s.session.Clear(ctx)
}

// ToggleFavorite adds or removes book and reports whether it is now a favorite.
func (s *Shelf) ToggleFavorite(book domain.Book) (bool, error) {
	on, err := s.favorites.Toggle(book)
	if err != nil {
		return false, err
	}
	s.reindex(func(x *index.Index) error {
		return x.SetBooks(index.ShelfFavorites, s.favorites.Items())
	})
	return on, nil
}

// RecordRecentlyViewed moves book to the front of the history.
func (s *Shelf) RecordRecentlyViewed(book domain.Book) error {
	if err := s.recent.Record(book); err != nil {
		return err
	}
	s.reindex(func(x *index.Index) error {
		return x.SetBooks(index.ShelfRecent, s.recent.Items())
	})
	return nil
}

// UpsertNote sets the note for a book.
func (s *Shelf) UpsertNote(bookKey, text string) (domain.Note, error) {
	note, err := s.notes.Upsert(bookKey, text)
	if err != nil {
		return domain.Note{}, err
	}
	s.reindex(func(x *index.Index) error { return x.SetNotes(s.notes.All()) })
	return note, nil
}

// DeleteNote removes the note for a book, if any.
func (s *Shelf) DeleteNote(bookKey string) bool {
	if !s.notes.Delete(bookKey) {
		return false
	}
	s.reindex(func(x *index.Index) error { return x.SetNotes(s.notes.All()) })
	return true
}

// SearchLibrary searches the reader's own books, favorites, history and
// notes, without the network.
func (s *Shelf) SearchLibrary(ctx context.Context, query string, limit int) ([]index.Hit, error) {
	if s.index == nil {
		return nil, domainerrors.Internal("library search is not available")
	}
	return s.index.Search(ctx, query, limit)
}

// CoverURL returns the cover image URL for a book, or false when the
// caller should show a placeholder.
func (s *Shelf) CoverURL(book domain.Book, size catalog.CoverSize) (string, bool) {
	return s.catalog.CoverURL(book.CoverI, size)
}

// Session returns the active user, or nil.
func (s *Shelf) Session() *domain.User { return s.session.Current() }

// Favorites returns the favorites in the order they were added.
func (s *Shelf) Favorites() []domain.Book { return s.favorites.Items() }

// IsFavorite reports whether the book with key is a favorite.
func (s *Shelf) IsFavorite(key string) bool { return s.favorites.Contains(key) }

// RecentlyViewed returns the full history, most recent first.
func (s *Shelf) RecentlyViewed() []domain.Book { return s.recent.Items() }

// RecentlyViewedPreview returns the head of the history.
func (s *Shelf) RecentlyViewedPreview() []domain.Book { return s.recent.Preview() }

// Notes returns every note keyed by book key.
func (s *Shelf) Notes() map[string]domain.Note { return s.notes.All() }

// Note returns the note for one book.
func (s *Shelf) Note(bookKey string) (domain.Note, bool) { return s.notes.Get(bookKey) }
