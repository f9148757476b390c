package league

import (
	"strings"
	"time"
)

// Upstream feeds carry placeholder dates (old seasons, year 2099, ...). A
// fixture date is only reported when it falls inside this window around now.
const (
	DatePastWindow       = 180 * 24 * time.Hour
	DateFutureWindowYear = 2
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 timestamp. Values without an offset are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsValidDate reports whether s parses and lies within
// (now - DatePastWindow, now + DateFutureWindowYear years).
func IsValidDate(s string, now time.Time) bool {
	t, ok := ParseDate(s)
	if !ok {
		return false
	}
	now = now.UTC()
	if t.Before(now.Add(-DatePastWindow)) {
		return false
	}
	if t.After(now.AddDate(DateFutureWindowYear, 0, 0)) {
		return false
	}
	return true
}

// ValidDate returns s when it passes IsValidDate, nil otherwise.
func ValidDate(s *string, now time.Time) *string {
	if s == nil || !IsValidDate(*s, now) {
		return nil
	}
	v := *s
	return &v
}
