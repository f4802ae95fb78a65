package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateResult carries a parsed date plus whether it came from a real parse or
// the lenient now-fallback.
type DateResult struct {
	Value  time.Time
	Status Status
	Reason string
}

// datePatterns are tried in order. Each captures three numeric groups; the
// first group being 4 digits long means the format is year-first, otherwise
// day-first. Covers DD/MM/YYYY, DD-MM-YYYY, YYYY-MM-DD, YYYY/MM/DD and
// DD.MM.YYYY.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`),
	regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`),
	regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`),
	regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`),
	regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`),
}

// genericDateLayouts are the last-resort layouts tried before giving up.
var genericDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// ParseDate parses a statement date string. Unparseable input yields the
// current date with StatusFallback rather than an error: imports never stop
// on a bad date, the batch report carries the count instead.
func ParseDate(s string) DateResult {
	return ParseDateAt(s, time.Now())
}

// ParseDateAt is ParseDate with an explicit fallback instant.
func ParseDateAt(s string, now time.Time) DateResult {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return DateResult{Value: now, Status: StatusFallback, Reason: ReasonEmptyValue}
	}

	for _, pat := range datePatterns {
		m := pat.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])

		var year, month, day int
		if len(m[1]) == 4 {
			year, month, day = a, b, c
		} else {
			day, month, year = a, b, c
		}

		if t, ok := calendarDate(year, month, day); ok {
			return DateResult{Value: t, Status: StatusOK}
		}
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return DateResult{Value: t, Status: StatusOK}
		}
	}

	return DateResult{Value: now, Status: StatusFallback, Reason: ReasonUnparseableDate}
}

// calendarDate builds a date and rejects values that time.Date would have
// silently normalized (e.g. 31/02 rolling into March).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
