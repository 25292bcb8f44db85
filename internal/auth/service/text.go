package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripMarkup = bluemonday.StrictPolicy()

// cleanText strips markup from free-text profile fields such as name and
// organization. The result is plain text, not HTML.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripMarkup.Sanitize(strings.TrimSpace(s))))
}
