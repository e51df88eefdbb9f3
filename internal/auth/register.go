package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/crypto/blake2b"

	"github.com/morashelf/morashelf-core/internal/domain"
	domainerrors "github.com/morashelf/morashelf-core/internal/errors"
	"github.com/morashelf/morashelf-core/internal/id"
)

// mockTokenPrefix marks tokens synthesized on the device.
const mockTokenPrefix = "mock-"

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// Register creates an account and returns its session.
//
// The shadow registry is checked first and is authoritative for duplicates.
// The remote call is best effort: its only contribution is an id. The record
// is always written to the registry before the session is returned.
func (c *Client) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	req := RegisterRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	if c.registry.Exists(ctx, req.Email) {
		return nil, domainerrors.EmailAlreadyExists("An account with this email already exists")
	}

	username := usernameFromEmail(req.Email)
	userID := c.remoteRegister(ctx, req, username)
	if userID == "" {
		generated, err := id.Generate("user")
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate user id")
		}
		userID = generated
	}

	rec := domain.RegisteredUser{
		ID:       userID,
		Name:     req.Name,
		Email:    req.Email,
		Username: username,
		Password: req.Password,
		Token:    c.mockToken(userID),
	}
	if err := c.registry.Insert(ctx, rec); err != nil {
		return nil, err
	}

	return rec.Session(), nil
}

// remoteRegister posts the account to the auth API and returns the id it
// assigned, or "" when the call failed for any reason.
func (c *Client) remoteRegister(ctx context.Context, req RegisterRequest, username string) string {
	firstName, lastName := splitName(req.Name)
	payload := map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     req.Email,
		"username":  username,
		"password":  req.Password,
	}

	status, body, err := c.do(ctx, http.MethodPost, "/users/add", nil, payload)
	if err != nil {
		c.logger.Warn("remote registration unavailable, continuing locally", "error", err)
		return ""
	}
	if status < 200 || status >= 300 || !gjson.ValidBytes(body) {
		c.logger.Warn("remote registration rejected, continuing locally",
			"status", status,
			"reason", rejectionMessage(body, status),
		)
		return ""
	}
	return stringOrNumber(gjson.GetBytes(body, "id"))
}

// mockToken derives an opaque bearer from the user id, the current time and
// a process-wide counter, so two tokens minted in the same instant differ.
func (c *Client) mockToken(userID string) string {
	seq := c.tokenSeq.Add(1)
	sum := blake2b.Sum256(fmt.Appendf(nil, "%s|%d|%d", userID, c.now().UnixNano(), seq))
	return mockTokenPrefix + hex.EncodeToString(sum[:])
}

// IsMockToken reports whether token was synthesized on this device rather
// than issued by the auth API.
func IsMockToken(token string) bool {
	return strings.HasPrefix(token, mockTokenPrefix)
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}
