package domain

import "strings"

// DefaultDisplayName greets a session that has no name on file.
const DefaultDisplayName = "Student"

// User is the single active authenticated identity. Token may be a server
// issued bearer or a locally synthesized mock token; both are opaque.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Token        string `json:"token"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// DisplayName returns the user's name, falling back to the username and
// then to a generic greeting.
func (u *User) DisplayName() string {
	if u == nil {
		return DefaultDisplayName
	}
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.Username); n != "" {
		return n
	}
	return DefaultDisplayName
}

// RegisteredUser is a shadow registry record for an account created on this
// device. The auth backend is a mock that does not persist registrations, so
// these records are the authority for local logins.
//
// Password is stored in cleartext. Hashing it would change how local logins
// match, so it is kept as-is and must never be synced off the device.
type RegisteredUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Session converts the record into the session it authenticates.
func (r RegisteredUser) Session() *User {
	return &User{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Username:    r.Username,
		Token:       r.Token,
		AccessToken: r.Token,
	}
}
