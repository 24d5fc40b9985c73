package planner

import (
	"strings"
	"time"
)

// reconcile filters an external proposal against the request and groups the
// surviving items by day offset. Items are kept in proposal order, and an item
// that would push its day past the budget is dropped.
func reconcile(start, end time.Time, budget int, rest restSet, topics []Topic, proposal []RawSession) (map[int][]Session, int, int) {
	if len(proposal) == 0 {
		return nil, 0, 0
	}

	span := daysBetween(start, end)
	byDay := make(map[int][]Session)
	used := make(map[int]int)
	accepted, rejected := 0, 0

	for _, item := range proposal {
		name := strings.TrimSpace(item.Topic)
		if item.DayNumber < 1 || name == "" || item.DurationMinutes <= 0 {
			rejected++
			continue
		}
		offset := item.DayNumber - 1
		if offset > span {
			rejected++
			continue
		}
		date := addDays(start, offset)
		if rest.has(date) {
			rejected++
			continue
		}
		if item.DurationMinutes > budget-used[offset] {
			rejected++
			continue
		}

		used[offset] += item.DurationMinutes
		byDay[offset] = append(byDay[offset], Session{
			Date:            date,
			Topic:           name,
			DurationMinutes: item.DurationMinutes,
			Priority:        resolvePriority(item.Priority, name, topics),
			Source:          SourceAI,
		})
		accepted++
	}
	return byDay, accepted, rejected
}

// resolvePriority prefers the proposal's own tier, then the first matching request
// topic, then medium.
func resolvePriority(raw, name string, topics []Topic) Priority {
	if strings.TrimSpace(raw) != "" {
		if p, ok := ParsePriority(raw); ok {
			return p
		}
	}
	for _, topic := range topics {
		if strings.EqualFold(topic.Name, name) {
			return topic.Priority
		}
	}
	return PriorityMedium
}
