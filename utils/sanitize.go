package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from s and trims surrounding whitespace.
// Entities produced by the policy are unescaped so stored text stays plain.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// StripOperators removes, at any depth, map keys that could be read as query operators
// or field paths by the document store: keys starting with '$' or containing '.'.
func StripOperators(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				delete(t, k)
				continue
			}
			t[k] = StripOperators(child)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = StripOperators(child)
		}
		return t
	default:
		return v
	}
}
