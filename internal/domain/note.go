package domain

import "time"

// Note is a reader's personal note on one book. The book key is the map key
// in storage, so it is not serialized with the note itself.
type Note struct {
	BookKey   string    `json:"-"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}
