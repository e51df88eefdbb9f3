package avatar

import (
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/morashelf/morashelf-core/internal/domain"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestFor_Initial(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
		want string
	}{
		{"guest", nil, "S"},
		{"name", &domain.User{ID: "1", Name: "ada lovelace"}, "A"},
		{"username fallback", &domain.User{ID: "2", Username: "emilys"}, "E"},
		{"blank name", &domain.User{ID: "3", Name: "   "}, "S"},
		{"non-ascii", &domain.User{ID: "4", Name: "élodie"}, "É"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := For(tt.user)
			assert.Equal(t, tt.want, got.Initial)
			assert.Regexp(t, hexColor, got.Color)
		})
	}
}

func TestFor_ColorStablePerAccount(t *testing.T) {
	a := For(&domain.User{ID: "42", Name: "Ada"})
	renamed := For(&domain.User{ID: "42", Name: "Countess"})
	other := For(&domain.User{ID: "43", Name: "Ada"})

	assert.Equal(t, a.Color, renamed.Color)
	assert.NotEqual(t, a.Color, other.Color)
}

func TestHSLToRGB(t *testing.T) {
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, []uint8{127, 127, 127}, []uint8{r, g, b})

	r, g, b = hslToRGB(0, 1, 0.5)
	assert.Equal(t, []uint8{255, 0, 0}, []uint8{r, g, b})
}

func TestFor_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := &domain.User{ID: fmt.Sprint(i), Name: "élodie"}
			for range 100 {
				assert.Equal(t, "É", For(u).Initial)
			}
		}()
	}
	wg.Wait()
}
