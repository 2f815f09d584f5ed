// Package redact masks sensitive values in log lines before they reach disk.
package redact

import (
	"fmt"
	"regexp"
)

// Mask replaces the value portion of a matched sensitive assignment.
const Mask = "***"

// DefaultKeywords are masked when no keyword list is configured.
var DefaultKeywords = []string{
	"token",
	"password",
	"passwd",
	"pwd",
	"secret",
	"api_key",
	"apikey",
	"access_key",
	"accesskey",
	"private_key",
	"privatekey",
	"credential",
	"auth",
}

// Redactor rewrites lines so that values following configured sensitive
// keywords never hit disk. It is pure: no state changes after construction,
// safe for concurrent use.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New builds a Redactor for the given keywords. A nil or empty slice selects
// DefaultKeywords.
func New(keywords []string) *Redactor {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	r := &Redactor{}
	for _, kw := range keywords {
		q := regexp.QuoteMeta(kw)
		// key=value, key: value, and "key": "value" shapes.
		shapes := []string{
			fmt.Sprintf(`(?i)(%s)\s*=\s*["']?([^"'\s,}\]]+)["']?`, q),
			fmt.Sprintf(`(?i)(%s)\s*:\s*["']?([^"'\s,}\]]+)["']?`, q),
			fmt.Sprintf(`(?i)["'](%s)["']\s*:\s*["']([^"']+)["']`, q),
		}
		for _, s := range shapes {
			r.patterns = append(r.patterns, regexp.MustCompile(s))
		}
	}
	return r
}

// Sanitize returns line with every sensitive value replaced by Mask. Lines
// containing no configured keyword pass through unchanged.
func (r *Redactor) Sanitize(line string) string {
	for _, p := range r.patterns {
		line = p.ReplaceAllString(line, "${1}="+Mask)
	}
	return line
}
