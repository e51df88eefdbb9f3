// Package avatar derives the profile badge shown for the signed-in reader:
// the first letter of their display name on a color that stays stable for
// the same account.
package avatar

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/morashelf/morashelf-core/internal/domain"
)

// Avatar is a letter badge.
type Avatar struct {
	Initial string `json:"initial"`
	Color   string `json:"color"` // #RRGGBB
}

// For returns the badge for u. A nil user gets the guest badge.
func For(u *domain.User) Avatar {
	name := strings.TrimSpace(u.DisplayName())
	r, _ := utf8.DecodeRuneInString(name)

	seed := name
	if u != nil {
		switch {
		case u.ID != "":
			seed = u.ID
		case u.Email != "":
			seed = u.Email
		}
	}

	return Avatar{
		Initial: cases.Upper(language.Und).String(string(r)),
		Color:   colorFor(seed),
	}
}

// colorFor hashes seed onto the hue wheel at fixed saturation and
// lightness so every badge stays readable with white text.
func colorFor(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.4, 0.55)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts h in [0,360) and s, l in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
