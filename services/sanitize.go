package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxCommentLength caps free-text comments and override reasons
const maxCommentLength = 4000

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from user free text and trims it
func SanitizeText(s string) string {
	out := strings.TrimSpace(textPolicy.Sanitize(s))
	if len(out) > maxCommentLength {
		out = strings.TrimSpace(truncateRunes(out, maxCommentLength))
	}
	return out
}

// SanitizeComments cleans every value and drops empty comments
func SanitizeComments(comments map[string]string) map[string]string {
	out := make(map[string]string, len(comments))
	for k, v := range comments {
		if clean := SanitizeText(v); clean != "" {
			out[k] = clean
		}
	}
	return out
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}
