package utils

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.\s]+`)

// Sanitize strips everything but letters, digits, dashes, dots and
// underscores, and turns spaces into underscores. Empty results fall back to def.
func Sanitize(text, def string) string {
	clean := unsafeChars.ReplaceAllString(text, "")
	clean = strings.Join(strings.Fields(clean), "_")
	if clean == "" || strings.Trim(clean, ".") == "" {
		return def
	}
	return clean
}
