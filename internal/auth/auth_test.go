package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/kv"
)

// fakeAuthAPI mimics the mock auth backend: it knows a fixed set of users
// and records every path it serves.
type fakeAuthAPI struct {
	mu    sync.Mutex
	paths []string

	users      map[string]string // username -> password
	emails     map[string]string // email -> username
	searchHits bool
	filterHits bool
	addID      any
	addStatus  int
}

func newFakeAuthAPI() *fakeAuthAPI {
	return &fakeAuthAPI{
		users:     map[string]string{"emilys": "emilyspass"},
		emails:    map[string]string{"emily.johnson@x.dummyjson.com": "emilys"},
		addID:     209,
		addStatus: http.StatusCreated,
	}
}

func (f *fakeAuthAPI) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeAuthAPI) usersJSON(match bool) []map[string]string {
	out := []map[string]string{{"email": "someone@else.com", "username": "someone"}}
	if match {
		for email, username := range f.emails {
			out = append(out, map[string]string{"email": email, "username": username})
		}
	}
	return out
}

func (f *fakeAuthAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth/login":
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if pw, ok := f.users[body.Username]; ok && pw == body.Password {
			json.NewEncoder(w).Encode(map[string]any{
				"id":           1,
				"username":     body.Username,
				"email":        "emily.johnson@x.dummyjson.com",
				"firstName":    "Emily",
				"lastName":     "Johnson",
				"accessToken":  "remote-access",
				"refreshToken": "remote-refresh",
			})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	case "/users/add":
		w.WriteHeader(f.addStatus)
		json.NewEncoder(w).Encode(map[string]any{"id": f.addID})
	case "/users/search":
		json.NewEncoder(w).Encode(map[string]any{"users": f.usersJSON(f.searchHits)})
	case "/users/filter":
		json.NewEncoder(w).Encode(map[string]any{"users": f.usersJSON(f.filterHits)})
	case "/users":
		json.NewEncoder(w).Encode(map[string]any{"users": f.usersJSON(true), "limit": r.URL.Query().Get("limit")})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupTestClient(t *testing.T, api http.Handler) (*Client, *kv.Memory) {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	store := kv.NewMemory()
	client := New(Options{BaseURL: server.URL, RPS: -1, HTTPClient: server.Client()}, NewRegistry(store, nil), nil)
	return client, store
}

// unreachableURL returns the address of a server that has already shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	return server.URL
}

func TestRegister_CreatesShadowRecord(t *testing.T) {
	api := newFakeAuthAPI()
	client, store := setupTestClient(t, api)
	ctx := context.Background()

	user, err := client.Register(ctx, "  Ada Lovelace ", "Ada@Example.com", "analytical")
	require.NoError(t, err)

	assert.Equal(t, "209", user.ID, "remote id is used when supplied")
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada", user.Username)
	assert.True(t, IsMockToken(user.Token))
	assert.Equal(t, user.Token, user.AccessToken)
	assert.Contains(t, api.Paths(), "/users/add")

	stored, ok := kv.LoadJSON[map[string]domain.RegisteredUser](ctx, store, RegistryKey, nil)
	require.True(t, ok)
	rec, ok := stored["ada@example.com"]
	require.True(t, ok)
	assert.Equal(t, "analytical", rec.Password)
	assert.Equal(t, user.Token, rec.Token)
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	client, _ := setupTestClient(t, newFakeAuthAPI())
	ctx := context.Background()

	first, err := client.Register(ctx, "Ada", "ada@example.com", "pw1")
	require.NoError(t, err)

	_, err = client.Register(ctx, "Impostor", "ADA@Example.COM", "pw2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrEmailAlreadyExists)

	rec, ok := client.Registry().Lookup(ctx, "ada@example.com")
	require.True(t, ok)
	assert.Equal(t, "Ada", rec.Name)
	assert.Equal(t, "pw1", rec.Password)
	assert.Equal(t, first.Token, rec.Token)
	assert.Equal(t, 1, client.Registry().size(ctx))
}

func TestRegister_RemoteUnavailableFallsBackToLocalID(t *testing.T) {
	client := New(Options{BaseURL: unreachableURL(t), RPS: -1}, NewRegistry(kv.NewMemory(), nil), nil)

	user, err := client.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	assert.Regexp(t, `^user-`, user.ID)
	assert.True(t, IsMockToken(user.Token))
}

func TestRegister_RemoteRejectionFallsBackToLocalID(t *testing.T) {
	api := newFakeAuthAPI()
	api.addStatus = http.StatusBadRequest
	client, _ := setupTestClient(t, api)

	user, err := client.Register(context.Background(), "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Regexp(t, `^user-`, user.ID)
}

func TestRegister_Validation(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)

	tests := []struct {
		name, fullName, email, password string
	}{
		{"blank name", "  ", "ada@example.com", "pw"},
		{"bad email", "Ada", "ada-at-example", "pw"},
		{"empty password", "Ada", "ada@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Register(context.Background(), tt.fullName, tt.email, tt.password)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
	assert.Empty(t, api.Paths())
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	client, _ := setupTestClient(t, newFakeAuthAPI())
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Register(ctx, "Ada", "ada@example.com", "pw")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case domainerrors.Is(err, domainerrors.ErrEmailAlreadyExists):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestMockToken_Unique(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client := New(Options{Now: func() time.Time { return fixed }}, NewRegistry(kv.NewMemory(), nil), nil)

	a := client.mockToken("209")
	b := client.mockToken("209")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len(mockTokenPrefix)+64)
}

func TestLogin_LocalRecord(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)
	ctx := context.Background()

	registered, err := client.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)
	before := len(api.Paths())

	byEmail, err := client.Login(ctx, "ADA@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, byEmail.ID)
	assert.Equal(t, registered.Token, byEmail.Token)

	byUsername, err := client.Login(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, byUsername.ID)

	assert.Len(t, api.Paths(), before, "local logins never hit the network")
}

func TestLogin_SharedUsernames(t *testing.T) {
	type account struct{ email, password string }

	tests := []struct {
		name       string
		accounts   []account
		identifier string
		password   string
		wantEmail  string
		wantID     string
		wantErr    error
		wantRemote bool
	}{
		{
			name:       "two local accounts, second password",
			accounts:   []account{{"ada@one.com", "pw-one"}, {"ada@two.com", "pw-two"}},
			identifier: "ada",
			password:   "pw-two",
			wantEmail:  "ada@two.com",
		},
		{
			name:       "two local accounts, first password",
			accounts:   []account{{"ada@one.com", "pw-one"}, {"ada@two.com", "pw-two"}},
			identifier: "ADA",
			password:   "pw-one",
			wantEmail:  "ada@one.com",
		},
		{
			name:       "two local accounts, no password matches",
			accounts:   []account{{"ada@one.com", "pw-one"}, {"ada@two.com", "pw-two"}},
			identifier: "ada",
			password:   "nope",
			wantErr:    domainerrors.ErrInvalidCredentials,
			wantRemote: true,
		},
		{
			name:       "local account shadowing a remote username",
			accounts:   []account{{"emilys@local.test", "local-pw"}},
			identifier: "emilys",
			password:   "emilyspass",
			wantEmail:  "emily.johnson@x.dummyjson.com",
			wantID:     "1",
			wantRemote: true,
		},
		{
			name:       "local account with the same username still signs in locally",
			accounts:   []account{{"emilys@local.test", "local-pw"}},
			identifier: "emilys",
			password:   "local-pw",
			wantEmail:  "emilys@local.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAuthAPI()
			client, _ := setupTestClient(t, api)
			ctx := context.Background()

			for _, a := range tt.accounts {
				_, err := client.Register(ctx, "Reader", a.email, a.password)
				require.NoError(t, err)
			}
			before := len(api.Paths())

			// Repeated so map iteration order cannot hide a wrong pick.
			for range 20 {
				user, err := client.Login(ctx, tt.identifier, tt.password)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
					continue
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantEmail, user.Email)
				if tt.wantID != "" {
					assert.Equal(t, tt.wantID, user.ID)
				}
			}

			if tt.wantRemote {
				assert.Contains(t, api.Paths()[before:], "/auth/login")
			} else {
				assert.Len(t, api.Paths(), before, "local logins never hit the network")
			}
		})
	}
}

func TestLogin_LocalWrongPasswordWhileOffline(t *testing.T) {
	store := kv.NewMemory()
	registry := NewRegistry(store, nil)
	ctx := context.Background()

	online, _ := setupTestClient(t, newFakeAuthAPI())
	online.registry = registry
	_, err := online.Register(ctx, "Ada", "ada@example.com", "pw")
	require.NoError(t, err)

	offline := New(Options{BaseURL: unreachableURL(t), RPS: -1}, registry, nil)

	_, err = offline.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestLogin_RemoteSuccess(t *testing.T) {
	client, _ := setupTestClient(t, newFakeAuthAPI())

	user, err := client.Login(context.Background(), "emilys", "emilyspass")
	require.NoError(t, err)

	assert.Equal(t, "1", user.ID)
	assert.Equal(t, "Emily Johnson", user.Name)
	assert.Equal(t, "remote-access", user.Token, "accessToken fills token")
	assert.Equal(t, "remote-access", user.AccessToken)
	assert.Equal(t, "remote-refresh", user.RefreshToken)
}

func TestLogin_ResolvesUsernameFromEmail(t *testing.T) {
	api := newFakeAuthAPI()
	api.filterHits = true
	client, _ := setupTestClient(t, api)

	user, err := client.Login(context.Background(), "Emily.Johnson@x.dummyjson.com", "emilyspass")
	require.NoError(t, err)
	assert.Equal(t, "emilys", user.Username)

	// Search had no match, filter did; the bulk list was never needed.
	assert.Equal(t, []string{"/auth/login", "/users/search", "/users/filter", "/auth/login"}, api.Paths())
}

func TestLogin_ResolverFallsThroughToList(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)

	_, err := client.Login(context.Background(), "emily.johnson@x.dummyjson.com", "emilyspass")
	require.NoError(t, err)
	assert.Equal(t, []string{"/auth/login", "/users/search", "/users/filter", "/users", "/auth/login"}, api.Paths())
}

func TestLogin_UnresolvedEmail(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)

	_, err := client.Login(context.Background(), "nobody@example.com", "pw")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.NotContains(t, api.Paths()[1:], "/auth/login", "no retry without a username")
}

func TestLogin_ResolvedButWrongPassword(t *testing.T) {
	api := newFakeAuthAPI()
	api.searchHits = true
	client, _ := setupTestClient(t, api)

	_, err := client.Login(context.Background(), "emily.johnson@x.dummyjson.com", "nope")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, []string{"/auth/login", "/users/search", "/auth/login"}, api.Paths())
}

func TestLogin_UsernameRejectionSkipsResolution(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)

	_, err := client.Login(context.Background(), "emilys", "nope")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, []string{"/auth/login"}, api.Paths())
}

func TestLogin_NetworkError(t *testing.T) {
	client := New(Options{BaseURL: unreachableURL(t), RPS: -1}, NewRegistry(kv.NewMemory(), nil), nil)

	_, err := client.Login(context.Background(), "someone@example.com", "pw")
	assert.ErrorIs(t, err, domainerrors.ErrNetwork)
}

func TestLogin_ServerFailure(t *testing.T) {
	client, _ := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"upstream down"}`))
	}))

	_, err := client.Login(context.Background(), "emilys", "pw")
	assert.ErrorIs(t, err, domainerrors.ErrServerRejected)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.UserMessage(), "upstream down")
}

func TestLogin_CustomResolvers(t *testing.T) {
	api := newFakeAuthAPI()
	client, _ := setupTestClient(t, api)

	var asked []string
	client.WithResolvers(UsernameResolver{
		Name: "exact",
		Resolve: func(_ context.Context, email string) (string, bool, error) {
			asked = append(asked, email)
			return "emilys", true, nil
		},
	})

	_, err := client.Login(context.Background(), "emily@anywhere.org", "emilyspass")
	require.NoError(t, err)
	assert.Equal(t, []string{"emily@anywhere.org"}, asked)
	assert.Equal(t, []string{"/auth/login", "/auth/login"}, api.Paths())
}

func TestLogin_BlankIdentifier(t *testing.T) {
	client, _ := setupTestClient(t, newFakeAuthAPI())

	_, err := client.Login(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
