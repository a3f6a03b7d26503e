package domain

import (
	"regexp"
	"strconv"
	"time"
)

// Date patterns seen on procurement documents. The CJK form appears on
// scanned Chinese paperwork; the remaining forms cover typed documents.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`),
	regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
}

// ParseDate extracts the first recognisable date from a free-form string.
// Returns the zero time and false when no supported pattern matches or
// the matched components do not form a valid calendar date.
func ParseDate(s string) (time.Time, bool) {
	for _, p := range datePatterns {
		m := p.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalises overflow (e.g. Feb 31 → Mar 3); reject those.
		if t.Day() != day || t.Month() != time.Month(month) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
