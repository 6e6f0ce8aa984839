package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// CleanContent sanitizes a post body and trims surrounding whitespace. Input
// that is only markup the policy strips (e.g. a bare <script>) becomes empty.
func CleanContent(input string) string {
	return strings.TrimSpace(Sanitize(strings.TrimSpace(input)))
}
