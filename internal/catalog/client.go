// Package catalog is the client for the public book-search API (OpenLibrary).
//
// Responses are projected down to domain.Book with gjson rather than decoded
// into structs: the upstream returns a large, loosely typed superset of
// fields and a wrong-typed field must drop that field, not the whole page.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/logger"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultCoversURL = "https://covers.openlibrary.org"
	defaultTimeout   = 15 * time.Second

	// Rate limit: 5 requests per second, burst of 5
	defaultRPS   = 5.0
	defaultBurst = 5

	// DefaultLimit is the page size when callers pass a non-positive limit.
	DefaultLimit = 20

	userAgent = "MoraShelf/1.0 (reading companion)"
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	BaseURL    string
	CoversURL  string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
}

// Client is a rate-limited catalog API client.
type Client struct {
	http      *http.Client
	baseURL   string
	coversURL string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a new catalog client.
func New(opts Options, log *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.CoversURL == "" {
		opts.CoversURL = defaultCoversURL
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

	limit := rate.Limit(opts.RPS)
	if opts.RPS < 0 {
		limit = rate.Inf
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		coversURL: strings.TrimRight(opts.CoversURL, "/"),
		limiter:   rate.NewLimiter(limit, opts.Burst),
		logger:    logger.OrDiscard(log),
	}
}

// doRequest executes a GET against the catalog with rate limiting and maps
// every failure onto the error taxonomy.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeCatalogUnavailable, "catalog request cancelled")
	}

	reqURL := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("catalog request", "path", path, "query", query.Encode())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeCatalogUnavailable, "The book catalog could not be reached")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeCatalogUnavailable, "The book catalog response was interrupted")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, domainerrors.CatalogUnavailable(
			fmt.Sprintf("The book catalog is unavailable (status %d)", resp.StatusCode))
	default:
		return nil, domainerrors.ServerRejectedf("The book catalog rejected the request: %s",
			rejectionMessage(body, resp.StatusCode))
	}
}

// rejectionMessage pulls a human-readable reason out of an error body.
func rejectionMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message"} {
			if msg := gjson.GetBytes(body, path); msg.Type == gjson.String && msg.String() != "" {
				return msg.String()
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
