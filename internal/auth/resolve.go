package auth

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
)

// UsernameResolver is one strategy for finding the username registered to
// an email. Resolve reports found == false with a nil error when the
// strategy ran but had no exact match.
type UsernameResolver struct {
	Name    string
	Resolve func(ctx context.Context, email string) (username string, found bool, err error)
}

// DefaultResolvers returns the strategies the mock auth API needs, in the
// order they are tried: search, filter by email, then a bounded bulk list.
// A backend with exact email lookup should replace these with one resolver.
func (c *Client) DefaultResolvers(pageSize int) []UsernameResolver {
	return []UsernameResolver{
		{
			Name: "search",
			Resolve: func(ctx context.Context, email string) (string, bool, error) {
				return c.scanUsers(ctx, "/users/search", url.Values{"q": {email}}, email)
			},
		},
		{
			Name: "filter",
			Resolve: func(ctx context.Context, email string) (string, bool, error) {
				return c.scanUsers(ctx, "/users/filter", url.Values{"key": {"email"}, "value": {email}}, email)
			},
		},
		{
			Name: "list",
			Resolve: func(ctx context.Context, email string) (string, bool, error) {
				q := url.Values{
					"limit":  {strconv.Itoa(pageSize)},
					"select": {"email,username"},
				}
				return c.scanUsers(ctx, "/users", q, email)
			},
		},
	}
}

// resolveUsername tries each strategy in order and stops at the first
// exact match. Strategy errors are logged and the next one is tried.
func (c *Client) resolveUsername(ctx context.Context, email string) (string, bool) {
	for _, r := range c.resolvers {
		username, found, err := r.Resolve(ctx, email)
		if err != nil {
			c.logger.Warn("username resolver failed", "resolver", r.Name, "error", err)
			continue
		}
		if found {
			c.logger.Debug("username resolved", "resolver", r.Name, "username", username)
			return username, true
		}
	}
	return "", false
}

// scanUsers fetches a users page and returns the username of the entry
// whose email matches exactly, ignoring case.
func (c *Client) scanUsers(ctx context.Context, path string, query url.Values, email string) (string, bool, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return "", false, err
	}
	if status != http.StatusOK {
		return "", false, domainerrors.ServerRejectedf("%s: %s", path, rejectionMessage(body, status))
	}
	if !gjson.ValidBytes(body) {
		return "", false, domainerrors.ServerRejectedf("%s: unreadable response", path)
	}

	want := NormalizeEmail(email)
	var username string
	gjson.GetBytes(body, "users").ForEach(func(_, u gjson.Result) bool {
		e := u.Get("email")
		name := u.Get("username")
		if e.Type == gjson.String && name.Type == gjson.String && name.String() != "" &&
			NormalizeEmail(e.String()) == want {
			username = name.String()
			return false
		}
		return true
	})
	return username, username != "", nil
}
