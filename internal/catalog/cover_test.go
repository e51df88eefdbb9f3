package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverURL(t *testing.T) {
	client := New(Options{CoversURL: "https://covers.openlibrary.org/"}, nil)
	id := 11481354
	zero := 0

	tests := []struct {
		name    string
		coverID *int
		size    CoverSize
		want    string
		wantOK  bool
	}{
		{"medium", &id, CoverMedium, "https://covers.openlibrary.org/b/id/11481354-M.jpg", true},
		{"large", &id, CoverLarge, "https://covers.openlibrary.org/b/id/11481354-L.jpg", true},
		{"small", &id, CoverSmall, "https://covers.openlibrary.org/b/id/11481354-S.jpg", true},
		{"unknown size falls back to medium", &id, CoverSize("XL"), "https://covers.openlibrary.org/b/id/11481354-M.jpg", true},
		{"absent cover", nil, CoverMedium, "", false},
		{"zero cover", &zero, CoverMedium, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := client.CoverURL(tt.coverID, tt.size)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoverSize(t *testing.T) {
	assert.Equal(t, CoverSmall, ParseCoverSize("s"))
	assert.Equal(t, CoverLarge, ParseCoverSize(" L "))
	assert.Equal(t, CoverMedium, ParseCoverSize(""))
	assert.Equal(t, CoverMedium, ParseCoverSize("huge"))
}
