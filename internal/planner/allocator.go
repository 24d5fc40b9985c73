package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidRequest is returned when scheduling parameters are structurally invalid.
var ErrInvalidRequest = errors.New("invalid schedule request")

// MergePolicy decides how an external proposal and the fallback share the range.
type MergePolicy string

const (
	// MergePerDay keeps external sessions on the days they cover and fills the rest
	// with the fallback distribution.
	MergePerDay MergePolicy = "per_day"
	// MergeWholeProposal adopts the proposal only when it covers every study day.
	MergeWholeProposal MergePolicy = "whole_proposal"
)

// ParseMergePolicy resolves a configured policy name, defaulting to MergePerDay.
func ParseMergePolicy(raw string) MergePolicy {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case MergeWholeProposal:
		return MergeWholeProposal
	default:
		return MergePerDay
	}
}

// Allocator turns a Request into a day-by-day study schedule. It holds no state
// between calls and is safe for concurrent use.
type Allocator struct {
	policy MergePolicy
}

// NewAllocator builds an allocator using the given merge policy.
func NewAllocator(policy MergePolicy) *Allocator {
	if policy != MergeWholeProposal {
		policy = MergePerDay
	}
	return &Allocator{policy: policy}
}

// Policy returns the merge policy in use.
func (a *Allocator) Policy() MergePolicy {
	return a.policy
}

// Allocate validates req and produces the schedule. proposal may be nil; malformed
// items in it are dropped and never cause an error.
func (a *Allocator) Allocate(req Request, proposal []RawSession) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := civilDate(req.StartDate)
	end := civilDate(req.EndDate)
	rest := newRestSet(req.RestDays)
	topics := sortTopics(req.Topics)
	days := studyDays(start, end, rest)

	external, accepted, rejected := reconcile(start, end, req.StudyMinutesPerDay, rest, topics, proposal)
	if a.policy == MergeWholeProposal && accepted > 0 && !coversAll(days, external) {
		rejected += accepted
		accepted = 0
		external = nil
	}

	result := &Result{
		Sessions:         make([]Session, 0, len(days)),
		ProposalAccepted: accepted,
		ProposalRejected: rejected,
	}

	cursor := 0
	externalDays, fallbackDays := 0, 0
	for _, day := range days {
		if sessions := external[day.offset]; len(sessions) > 0 {
			result.Sessions = append(result.Sessions, sessions...)
			externalDays++
			continue
		}
		result.Sessions = append(result.Sessions, fillDay(day, req.StudyMinutesPerDay, topics, &cursor)...)
		fallbackDays++
	}

	switch {
	case externalDays > 0 && fallbackDays == 0:
		result.Source = SourceAI
	case externalDays > 0:
		result.Source = SourceMixed
	default:
		result.Source = SourceFallback
	}
	return result, nil
}

// Validate checks the structural constraints every allocation relies on.
func (r Request) Validate() error {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: startDate and endDate are required", ErrInvalidRequest)
	}
	if civilDate(r.StartDate).After(civilDate(r.EndDate)) {
		return fmt.Errorf("%w: startDate must not be after endDate", ErrInvalidRequest)
	}
	if r.StudyMinutesPerDay <= 0 {
		return fmt.Errorf("%w: studyMinutesPerDay must be positive", ErrInvalidRequest)
	}
	if len(r.Topics) == 0 {
		return fmt.Errorf("%w: at least one topic is required", ErrInvalidRequest)
	}
	for _, day := range r.RestDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: rest day %d outside 0-6", ErrInvalidRequest, day)
		}
	}
	for i, topic := range r.Topics {
		if strings.TrimSpace(topic.Name) == "" {
			return fmt.Errorf("%w: topic %d has no name", ErrInvalidRequest, i)
		}
		if topic.Priority != "" && !topic.Priority.Valid() {
			return fmt.Errorf("%w: topic %q has unknown priority %q", ErrInvalidRequest, topic.Name, topic.Priority)
		}
	}
	return nil
}

// sortTopics returns a priority-ordered copy, stable on input order.
func sortTopics(in []Topic) []Topic {
	topics := make([]Topic, len(in))
	for i, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
		topics[i] = t
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Priority.rank() < topics[j].Priority.rank()
	})
	return topics
}

// fillDay appends round-robin sessions while they fit the budget. A topic that does
// not fit a partly filled day stops the day and is retried first on the next one. A
// topic that does not fit an empty day can never be placed, so the cursor moves past it.
func fillDay(day studyDay, budget int, topics []Topic, cursor *int) []Session {
	var sessions []Session
	used := 0
	for attempt := 0; attempt < fillAttemptFactor*len(topics); attempt++ {
		topic := topics[*cursor]
		minutes := topic.Priority.SessionMinutes()
		if used+minutes > budget {
			if len(sessions) > 0 {
				break
			}
			*cursor = (*cursor + 1) % len(topics)
			continue
		}
		sessions = append(sessions, Session{
			Date:            day.date,
			Topic:           topic.Name,
			DurationMinutes: minutes,
			Priority:        topic.Priority,
			Source:          SourceFallback,
		})
		used += minutes
		*cursor = (*cursor + 1) % len(topics)
	}
	return sessions
}

func coversAll(days []studyDay, external map[int][]Session) bool {
	for _, day := range days {
		if len(external[day.offset]) == 0 {
			return false
		}
	}
	return true
}
