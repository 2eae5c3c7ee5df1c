package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "My Store", "my-store"},
		{"punctuation stripped", "Ada's Bakery!", "adas-bakery"},
		{"repeated separators collapse", "spring  2025__drop", "spring-2025-drop"},
		{"surrounding whitespace", "  Indie Tees  ", "indie-tees"},
		{"leading and trailing hyphens trimmed", "--flash sale--", "flash-sale"},
		{"already a slug", "team-hoodie-run", "team-hoodie-run"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GenerateSlug(tc.in))
		})
	}
}

func TestValidSlug(t *testing.T) {
	valid := []string{"my-store", "store1", "a", "spring-2025-drop"}
	for _, s := range valid {
		assert.True(t, ValidSlug(s), s)
	}

	invalid := []string{"", "My-Store", "double--hyphen", "-leading", "trailing-", "has space", "under_score"}
	for _, s := range invalid {
		assert.False(t, ValidSlug(s), s)
	}
}
