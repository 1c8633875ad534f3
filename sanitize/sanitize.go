// Package sanitize cleans user supplied text before it is stored or sent to
// other participants.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict allows no elements and no attributes. Text nodes come back HTML
// escaped, so quote characters are emitted as &#34; and &#39;.
var strict = bluemonday.StrictPolicy()

// Text strips all markup from s, escapes quoting characters and trims
// surrounding whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}

// All applies Text to every element, dropping the ones that end up empty.
func All(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if v := Text(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
