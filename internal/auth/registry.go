package auth

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/kv"
	"github.com/morashelf/morashelf-core/internal/logger"
)

// RegistryKey is where the shadow registry lives in the key-value store.
const RegistryKey = "@registered_users"

// NormalizeEmail returns the registry key for an email: trimmed, NFKC
// normalized and case-folded.
func NormalizeEmail(email string) string {
	// cases.Caser is stateful, so build one per call.
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(email)))
}

// Registry is the local shadow registry of accounts created on this device.
// Every read-modify-write runs under mu so concurrent registrations of the
// same email cannot both succeed.
type Registry struct {
	mu     sync.Mutex
	store  kv.Store
	logger *slog.Logger

	loaded bool
	users  map[string]domain.RegisteredUser
}

// NewRegistry creates a registry backed by store. Records are loaded lazily
// on first use.
func NewRegistry(store kv.Store, log *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.OrDiscard(log),
	}
}

// load hydrates the registry once. Corrupt or unreadable state is treated
// as an empty registry. Callers must hold mu.
func (r *Registry) load(ctx context.Context) {
	if r.loaded {
		return
	}
	users, _ := kv.LoadJSON[map[string]domain.RegisteredUser](ctx, r.store, RegistryKey, r.logger)
	if users == nil {
		users = make(map[string]domain.RegisteredUser)
	}
	r.users = users
	r.loaded = true
}

// Lookup finds the record registered under email (case-insensitive). The
// registry is keyed by email only; usernames are not unique.
func (r *Registry) Lookup(ctx context.Context, email string) (domain.RegisteredUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load(ctx)

	rec, ok := r.users[NormalizeEmail(email)]
	return rec, ok
}

// ByUsername returns every record whose username matches (case-insensitive),
// ordered by email.
func (r *Registry) ByUsername(ctx context.Context, username string) []domain.RegisteredUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load(ctx)

	want := NormalizeEmail(username)
	var out []domain.RegisteredUser
	for _, rec := range r.users {
		if rec.Username != "" && NormalizeEmail(rec.Username) == want {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return NormalizeEmail(out[i].Email) < NormalizeEmail(out[j].Email)
	})
	return out
}

// Exists reports whether email is already registered on this device.
func (r *Registry) Exists(ctx context.Context, email string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load(ctx)

	_, ok := r.users[NormalizeEmail(email)]
	return ok
}

// Insert adds rec and writes the registry through to storage before
// returning. It fails with EMAIL_ALREADY_EXISTS when the folded email is
// taken, leaving the existing record untouched.
func (r *Registry) Insert(ctx context.Context, rec domain.RegisteredUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load(ctx)

	key := NormalizeEmail(rec.Email)
	if _, ok := r.users[key]; ok {
		return domainerrors.EmailAlreadyExists("An account with this email already exists")
	}

	r.users[key] = rec
	if err := kv.SaveJSON(ctx, r.store, RegistryKey, r.users); err != nil {
		delete(r.users, key)
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "Could not save the new account")
	}

	r.logger.Info("registered local account", "user_id", rec.ID, "username", rec.Username)
	return nil
}

func (r *Registry) size(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load(ctx)
	return len(r.users)
}
