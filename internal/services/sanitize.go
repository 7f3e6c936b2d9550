package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// sanitizeText strips markup and surrounding whitespace from user input.
func sanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(input)))
}
