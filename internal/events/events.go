// Package events publishes data layer state changes to in-process
// subscribers such as a UI layer or the CLI.
package events

import (
	"time"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// EventType represents the type of Event.
type EventType string

const (
	// EventSessionChanged is sent on login, registration, logout and hydration.
	EventSessionChanged EventType = "session.changed"
	// EventFavoritesChanged carries the full favorites list after a change.
	EventFavoritesChanged EventType = "favorites.changed"
	// EventRecentChanged carries the full recently viewed list after a change.
	EventRecentChanged EventType = "recent.changed"
	// EventNotesChanged carries every note after a change.
	EventNotesChanged EventType = "notes.changed"

	EventSearchCompleted          EventType = "search.completed"
	EventSearchFailed             EventType = "search.failed"
	EventRecommendationsCompleted EventType = "recommendations.completed"

	// EventLibraryReady is sent once, when startup hydration has settled.
	EventLibraryReady EventType = "library.ready"
)

// Event is a state change. Data holds one of the payload types below and
// is always a full snapshot, so a subscriber that misses an event catches up
// on the next one of the same type.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// Emitter accepts events for delivery. Emit must not block.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// Emit implements Emitter as a no-op.
func (NoopEmitter) Emit(Event) {}

// SessionChangedData is the payload of EventSessionChanged. User is nil
// after logout.
type SessionChangedData struct {
	User *domain.User `json:"user"`
}

// BooksChangedData is the payload of EventFavoritesChanged and EventRecentChanged.
type BooksChangedData struct {
	Books []domain.Book `json:"books"`
}

// NotesChangedData is the payload of EventNotesChanged.
type NotesChangedData struct {
	Notes map[string]domain.Note `json:"notes"`
}

// SearchCompletedData is the payload of EventSearchCompleted.
type SearchCompletedData struct {
	Seq   uint64        `json:"seq"`
	Query string        `json:"query"`
	Books []domain.Book `json:"books"`
}

// SearchFailedData is the payload of EventSearchFailed.
type SearchFailedData struct {
	Seq     uint64            `json:"seq"`
	Query   string            `json:"query"`
	Code    domainerrors.Code `json:"code"`
	Message string            `json:"message"`
}

// RecommendationsData is the payload of EventRecommendationsCompleted.
type RecommendationsData struct {
	Books         []domain.Book `json:"books"`
	FailedAuthors []string      `json:"failed_authors,omitempty"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

// NewSessionChangedEvent creates a session.changed event.
func NewSessionChangedEvent(user *domain.User) Event {
	return newEvent(EventSessionChanged, SessionChangedData{User: user})
}

// NewFavoritesChangedEvent creates a favorites.changed event.
func NewFavoritesChangedEvent(books []domain.Book) Event {
	return newEvent(EventFavoritesChanged, BooksChangedData{Books: books})
}

// NewRecentChangedEvent creates a recent.changed event.
func NewRecentChangedEvent(books []domain.Book) Event {
	return newEvent(EventRecentChanged, BooksChangedData{Books: books})
}

// NewNotesChangedEvent creates a notes.changed event.
func NewNotesChangedEvent(notes map[string]domain.Note) Event {
	return newEvent(EventNotesChanged, NotesChangedData{Notes: notes})
}

// NewSearchCompletedEvent creates a search.completed event.
func NewSearchCompletedEvent(seq uint64, query string, books []domain.Book) Event {
	return newEvent(EventSearchCompleted, SearchCompletedData{Seq: seq, Query: query, Books: books})
}

// NewSearchFailedEvent creates a search.failed event from a taxonomy error.
func NewSearchFailedEvent(seq uint64, query string, err error) Event {
	data := SearchFailedData{Seq: seq, Query: query, Code: domainerrors.CodeInternal, Message: err.Error()}
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		data.Code = domainErr.Code
		data.Message = domainErr.UserMessage()
	}
	return newEvent(EventSearchFailed, data)
}

// NewRecommendationsEvent creates a recommendations.completed event.
func NewRecommendationsEvent(books []domain.Book, failedAuthors []string) Event {
	return newEvent(EventRecommendationsCompleted, RecommendationsData{Books: books, FailedAuthors: failedAuthors})
}

// NewLibraryReadyEvent creates a library.ready event.
func NewLibraryReadyEvent() Event {
	return newEvent(EventLibraryReady, struct{}{})
}
