package catalog

import (
	"fmt"
	"strings"
)

// CoverSize selects one of the three renditions the covers service serves.
type CoverSize string

// Cover sizes.
const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

// ParseCoverSize maps "s", "m", "l" (any case) onto a CoverSize.
// Anything else is medium.
func ParseCoverSize(s string) CoverSize {
	switch CoverSize(strings.ToUpper(strings.TrimSpace(s))) {
	case CoverSmall:
		return CoverSmall
	case CoverLarge:
		return CoverLarge
	default:
		return CoverMedium
	}
}

// CoverURL builds the image URL for a cover id. It reports false when the
// book has no cover, in which case the caller shows a placeholder.
// No I/O is performed.
func (c *Client) CoverURL(coverID *int, size CoverSize) (string, bool) {
	if coverID == nil || *coverID <= 0 {
		return "", false
	}
	size = ParseCoverSize(string(size))
	return fmt.Sprintf("%s/b/id/%d-%s.jpg", c.coversURL, *coverID, size), true
}
