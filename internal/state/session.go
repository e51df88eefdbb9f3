package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/events"
	"github.com/morashelf/morashelf-core/internal/kv"
)

// Session holds the single active identity, or none. Unlike the other
// stores it persists synchronously: a login must survive a crash right
// after it returns.
type Session struct {
	mu   sync.Mutex
	user *domain.User

	store   kv.Store
	emitter events.Emitter
	logger  *slog.Logger
}

// NewSession creates an empty, unhydrated session store.
func NewSession(store kv.Store, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		store:   store,
		emitter: opts.Emitter,
		logger:  opts.Logger.With("store", "session"),
	}
}

// Hydrate restores the stored session. A record without an id or token is
// treated as no session.
func (s *Session) Hydrate(ctx context.Context) error {
	user, _ := kv.LoadJSON[*domain.User](ctx, s.store, SessionKey, s.logger)
	if user != nil && user.ID == "" && user.Token == "" {
		s.logger.Warn("discarding incomplete stored session")
		user = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.emitter.Emit(events.NewSessionChangedEvent(cloneUser(user)))
	return ctx.Err()
}

// Set replaces the session with user and persists it before returning.
// On a storage failure the previous session stays active.
func (s *Session) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneUser(user)
	if err := kv.SaveJSON(ctx, s.store, SessionKey, next); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "Could not save the session")
	}
	s.user = next
	s.emitter.Emit(events.NewSessionChangedEvent(cloneUser(next)))
	return nil
}

// Clear ends the session and removes it from storage.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, SessionKey); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "Could not clear the session")
	}
	s.user = nil
	s.emitter.Emit(events.NewSessionChangedEvent(nil))
	return nil
}

// Current returns a copy of the active session, or nil.
func (s *Session) Current() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.user)
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
