package planner

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return civilDate(t).Format(DateLayout)
}

// civilDate drops the clock and location, keeping the calendar day as written.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// daysBetween returns the number of whole days from start to end (both civil dates).
func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// SpanDays returns the inclusive day count of [start, end].
func SpanDays(start, end time.Time) int {
	return daysBetween(civilDate(start), civilDate(end)) + 1
}

type restSet [7]bool

func newRestSet(days []int) restSet {
	var set restSet
	for _, d := range days {
		if d >= 0 && d < len(set) {
			set[d] = true
		}
	}
	return set
}

func (r restSet) has(t time.Time) bool {
	return r[int(t.Weekday())]
}

// studyDay is a non-rest date together with its offset from the start date.
type studyDay struct {
	offset int
	date   time.Time
}

func studyDays(start, end time.Time, rest restSet) []studyDay {
	span := daysBetween(start, end)
	days := make([]studyDay, 0, span+1)
	for offset := 0; offset <= span; offset++ {
		date := addDays(start, offset)
		if rest.has(date) {
			continue
		}
		days = append(days, studyDay{offset: offset, date: date})
	}
	return days
}
