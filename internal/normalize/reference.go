package normalize

import (
	"regexp"
	"strings"
)

// referencePatterns are the structured payment reference markers common in
// Belgian/French/Dutch statements, tried in order. Group 1 captures the
// reference body.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)REF\s*:\s*([A-Z0-9/\-]+)`),
	regexp.MustCompile(`(?i)REFERENCE\s*:\s*([A-Z0-9/\-]+)`),
	regexp.MustCompile(`(?i)COMMUNICATION\s*:\s*([A-Z0-9/\-]+)`),
	regexp.MustCompile(`(?i)OGM\s*:\s*([0-9/+]+)`),
	regexp.MustCompile(`\+\+\+(\d{3}/\d{4}/\d{5})\+\+\+`),
	regexp.MustCompile(`(?i)MEDEDELING\s*:\s*([A-Z0-9/\-]+)`),
}

// genericReference is the last-resort heuristic: two or more uppercase
// letters followed by at least four digits, the shape of most invoice and
// member numbers.
var genericReference = regexp.MustCompile(`\b([A-Z]{2,}[\-]?\d{4,})\b`)

// ExtractReference pulls a structured payment reference out of a free-text
// description. Returns the empty string when nothing matches; absence of a
// reference is an ordinary outcome, not a fallback.
func ExtractReference(description string) string {
	for _, pat := range referencePatterns {
		if m := pat.FindStringSubmatch(description); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := genericReference.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}
