package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	daysAgoRe  = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
	weeksAgoRe = regexp.MustCompile(`(\d+)\s*weeks?\s*ago`)
)

// Absolute formats job sites commonly print. Tried in order.
var dateFormats = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate resolves relative phrases ("posted 3 days ago", "today") and
// common absolute formats to a UTC date. The second return is false when
// nothing could be parsed; callers treat that as posted-date-unknown.
func ParseDate(raw string, now time.Time) (time.Time, bool) {
	s := strings.ToLower(CleanText(raw))
	if s == "" {
		return time.Time{}, false
	}
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	switch {
	case strings.Contains(s, "today"), strings.Contains(s, "just now"), strings.Contains(s, "few hours"):
		return day(now), true
	case strings.Contains(s, "yesterday"):
		return day(now.AddDate(0, 0, -1)), true
	}
	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		days, _ := strconv.Atoi(m[1])
		return day(now.AddDate(0, 0, -days)), true
	}
	if m := weeksAgoRe.FindStringSubmatch(s); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return day(now.AddDate(0, 0, -7*weeks)), true
	}
	if strings.Contains(s, "week ago") {
		return day(now.AddDate(0, 0, -7)), true
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, CleanText(raw)); err == nil {
			return day(t), true
		}
	}
	return time.Time{}, false
}
