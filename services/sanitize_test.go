package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Bold claim", SanitizeText("  <b>Bold</b> claim "))
	assert.Equal(t, "", SanitizeText("<script>alert('x')</script>"))

	long := strings.Repeat("é", maxCommentLength)
	out := SanitizeText(long)
	assert.LessOrEqual(t, len(out), maxCommentLength)
	assert.True(t, utf8.ValidString(out))
}

func TestSanitizeComments(t *testing.T) {
	out := SanitizeComments(map[string]string{
		"energy_carbon": "<i>LED retrofit</i>",
		"water":         "   ",
	})
	assert.Equal(t, map[string]string{"energy_carbon": "LED retrofit"}, out)
}
