// Package auth talks to the mock authentication API and keeps the local
// shadow registry that compensates for its lack of persistence.
//
// Login walks a fixed state machine:
//
//	local record?  -- password matches --> authenticated
//	               -- mismatch ----------> INVALID_CREDENTIALS (no network)
//	no record      --> POST /auth/login
//	                   -- success -------> authenticated
//	                   -- unreachable ---> NETWORK_ERROR
//	                   -- rejected, identifier is an email
//	                      --> resolve username --> retry once
//	                   -- anything else -> INVALID_CREDENTIALS
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/logger"
	"github.com/morashelf/morashelf-core/internal/ratelimit"
	"github.com/morashelf/morashelf-core/internal/validation"
)

const (
	defaultBaseURL = "https://dummyjson.com"
	defaultTimeout = 15 * time.Second

	// Rate limit per endpoint: 2 requests per second, burst of 4
	defaultRPS   = 2.0
	defaultBurst = 4

	defaultResolvePageSize = 100

	userAgent = "MoraShelf/1.0"
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RPS             float64
	Burst           int
	ResolvePageSize int
	HTTPClient      *http.Client
	Now             func() time.Time
}

// Client authenticates against the mock auth API with the shadow registry
// as the authority for accounts created on this device.
type Client struct {
	http      *http.Client
	baseURL   string
	registry  *Registry
	limiter   *ratelimit.Keyed
	resolvers []UsernameResolver
	validator *validation.Validator
	now       func() time.Time
	tokenSeq  atomic.Uint64
	logger    *slog.Logger
}

// New creates an auth client using registry for local accounts.
func New(opts Options, registry *Registry, log *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS == 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.ResolvePageSize <= 0 {
		opts.ResolvePageSize = defaultResolvePageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		registry:  registry,
		limiter:   ratelimit.New(opts.RPS, opts.Burst),
		validator: validation.New(),
		now:       opts.Now,
		logger:    logger.OrDiscard(log),
	}
	c.resolvers = c.DefaultResolvers(opts.ResolvePageSize)
	return c
}

// WithResolvers replaces the username resolution strategies. Passing none
// disables resolution, which is what a backend with exact-match login wants.
func (c *Client) WithResolvers(resolvers ...UsernameResolver) *Client {
	c.resolvers = resolvers
	return c
}

// Registry returns the shadow registry the client authenticates against.
func (c *Client) Registry() *Registry {
	return c.registry
}

// LoginRequest is the input to Login.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"notblank,max=254"`
	Password   string `json:"password" validate:"required,max=1024"`
}

// Login authenticates identifier (an email or a username) with password.
func (c *Client) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	req := LoginRequest{Identifier: strings.TrimSpace(identifier), Password: password}
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	// An email match is authoritative: a wrong password never reaches the network.
	if rec, ok := c.registry.Lookup(ctx, req.Identifier); ok {
		if rec.Password != req.Password {
			c.logger.Info("local login rejected", "username", rec.Username)
			return nil, domainerrors.InvalidCredentials("Incorrect email or password")
		}
		c.logger.Info("local login succeeded", "user_id", rec.ID)
		return rec.Session(), nil
	}

	// Usernames are derived from email local parts and can collide, both with
	// each other and with remote accounts. Only a password match settles it.
	for _, rec := range c.registry.ByUsername(ctx, req.Identifier) {
		if rec.Password == req.Password {
			c.logger.Info("local login succeeded", "user_id", rec.ID)
			return rec.Session(), nil
		}
	}

	user, err := c.remoteLogin(ctx, req.Identifier, req.Password)
	if err == nil {
		return user, nil
	}
	if !domainerrors.Is(err, domainerrors.ErrInvalidCredentials) || !looksLikeEmail(req.Identifier) {
		return nil, err
	}

	username, ok := c.resolveUsername(ctx, req.Identifier)
	if !ok {
		return nil, domainerrors.InvalidCredentials("Incorrect email or password")
	}

	user, err = c.remoteLogin(ctx, username, req.Password)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNetwork) {
			return nil, err
		}
		return nil, domainerrors.InvalidCredentials("Incorrect email or password").WithCause(err)
	}
	if user.Email == "" {
		user.Email = req.Identifier
	}
	return user, nil
}

// remoteLogin posts credentials to the auth API. A 4xx response is a
// credential rejection; a 5xx is SERVER_REJECTED.
func (c *Client) remoteLogin(ctx context.Context, username, password string) (*domain.User, error) {
	payload := map[string]any{
		"username": username,
		"password": password,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/auth/login", nil, payload)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
		if !gjson.ValidBytes(body) {
			return nil, domainerrors.ServerRejected("The sign-in service returned an unreadable response")
		}
		user := userFromJSON(gjson.ParseBytes(body))
		if user.Token == "" {
			user.Token = c.mockToken(user.ID)
			user.AccessToken = user.Token
		}
		c.logger.Info("remote login succeeded", "user_id", user.ID)
		return user, nil
	case status >= 500:
		return nil, domainerrors.ServerRejectedf("The sign-in service failed: %s", rejectionMessage(body, status))
	default:
		c.logger.Debug("remote login rejected", "status", status, "username", username)
		return nil, domainerrors.InvalidCredentials(rejectionMessage(body, status))
	}
}

// do executes a request against the auth API. Transport failures come back
// as NETWORK_ERROR; any HTTP response is returned to the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx, path); err != nil {
		return 0, nil, domainerrors.Wrap(err, domainerrors.CodeNetwork, "Request cancelled")
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return 0, nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("auth request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, domainerrors.Wrap(err, domainerrors.CodeNetwork,
			"Could not reach the sign-in service. Check your connection and try again.")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domainerrors.Wrap(err, domainerrors.CodeNetwork, "The sign-in response was interrupted")
	}
	return resp.StatusCode, body, nil
}

// userFromJSON projects an auth API user onto a session. The API spells
// the bearer either token or accessToken depending on the endpoint.
func userFromJSON(res gjson.Result) *domain.User {
	name := strings.TrimSpace(res.Get("firstName").String() + " " + res.Get("lastName").String())
	if name == "" {
		name = res.Get("name").String()
	}

	token := res.Get("token").String()
	access := res.Get("accessToken").String()
	if token == "" {
		token = access
	}
	if access == "" {
		access = token
	}

	return &domain.User{
		ID:           stringOrNumber(res.Get("id")),
		Name:         name,
		Email:        res.Get("email").String(),
		Username:     res.Get("username").String(),
		Token:        token,
		AccessToken:  access,
		RefreshToken: res.Get("refreshToken").String(),
	}
}

func stringOrNumber(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

// rejectionMessage pulls the human-readable reason out of an error body.
func rejectionMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.String() != "" {
			return msg.String()
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func looksLikeEmail(s string) bool {
	local, domainPart, ok := strings.Cut(s, "@")
	return ok && local != "" && strings.Contains(domainPart, ".") && !strings.ContainsAny(s, " \t")
}
