package utils

import "github.com/microcosm-cc/bluemonday"

// Reflection answers and group metadata are plain text, so the strict policy
// strips every element and attribute.
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText removes any markup from user supplied free text.
func SanitizeText(input string) string {
	return sanitizer.Sanitize(input)
}
