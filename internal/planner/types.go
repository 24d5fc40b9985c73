package planner

import (
	"strings"
	"time"
)

// Priority ranks a topic for fallback ordering and session length.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Fixed session lengths, in minutes, used by the fallback distribution.
const (
	DurationHigh   = 90
	DurationMedium = 60
	DurationLow    = 45
)

// fillAttemptFactor bounds cursor advances per day to fillAttemptFactor × topic count.
const fillAttemptFactor = 3

// ParsePriority normalises raw input. Empty input resolves to medium.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityLow:
		return PriorityLow, true
	}
	return "", false
}

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// SessionMinutes returns the fallback session length for the tier.
func (p Priority) SessionMinutes() int {
	switch p {
	case PriorityHigh:
		return DurationHigh
	case PriorityLow:
		return DurationLow
	default:
		return DurationMedium
	}
}

// Topic is a unit of study content. Duplicate names are scheduled independently.
type Topic struct {
	Name     string   `json:"topic"`
	Priority Priority `json:"priority"`
}

// Request holds the parameters of one allocation. Dates are calendar dates; any
// time-of-day component is ignored.
type Request struct {
	StartDate          time.Time
	EndDate            time.Time
	StudyMinutesPerDay int
	RestDays           []int
	Topics             []Topic
}

// RawSession is an untrusted session proposed by an external generator.
type RawSession struct {
	DayNumber       int    `json:"dayNumber"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"durationMinutes"`
	Priority        string `json:"priority,omitempty"`
}

// Source identifies what produced a session or schedule.
type Source string

const (
	SourceFallback Source = "fallback"
	SourceAI       Source = "ai"
	SourceMixed    Source = "mixed"
)

// Session is one scheduled block of study.
type Session struct {
	Date            time.Time `json:"date"`
	Topic           string    `json:"topic"`
	DurationMinutes int       `json:"durationMinutes"`
	Priority        Priority  `json:"priority"`
	Completed       bool      `json:"completed"`
	Source          Source    `json:"source"`
}

// Result is the finished schedule plus a summary of how it was built.
type Result struct {
	Sessions []Session
	Source   Source
	// ProposalAccepted counts external items present in Sessions.
	ProposalAccepted int
	// ProposalRejected counts external items that were dropped.
	ProposalRejected int
}
