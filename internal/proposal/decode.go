package proposal

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/study-planner-api/internal/planner"
)

var errNoJSON = errors.New("reply contains no JSON array or object")

// looseInt accepts JSON numbers and numeric strings. Anything else decodes to zero.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	*n = looseInt(f)
	return nil
}

type rawItem struct {
	DayNumber       looseInt `json:"dayNumber"`
	DayNumberSnake  looseInt `json:"day_number"`
	Day             looseInt `json:"day"`
	Topic           string   `json:"topic"`
	DurationMinutes looseInt `json:"durationMinutes"`
	DurationSnake   looseInt `json:"duration_minutes"`
	Duration        looseInt `json:"duration"`
	Priority        string   `json:"priority"`
}

func (r rawItem) session() planner.RawSession {
	return planner.RawSession{
		DayNumber:       firstNonZero(r.DayNumber, r.DayNumberSnake, r.Day),
		Topic:           strings.TrimSpace(r.Topic),
		DurationMinutes: firstNonZero(r.DurationMinutes, r.DurationSnake, r.Duration),
		Priority:        strings.TrimSpace(r.Priority),
	}
}

func firstNonZero(values ...looseInt) int {
	for _, v := range values {
		if v != 0 {
			return int(v)
		}
	}
	return 0
}

// stripFences returns the body of the first fenced code block, or text unchanged.
func stripFences(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}
	body := text[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.ContainsAny(body[:nl], "[{") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return body
}

// decodeSessions extracts proposal items from a model reply. The first JSON value in
// the text is used; it may be an array of items or an object with a "sessions" array.
// Elements that fail to decode become zero sessions so the planner counts them as rejected.
func decodeSessions(text string) ([]planner.RawSession, error) {
	body := stripFences(text)
	start := strings.IndexAny(body, "[{")
	if start == -1 {
		return nil, errNoJSON
	}

	var value json.RawMessage
	if err := json.NewDecoder(strings.NewReader(body[start:])).Decode(&value); err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if value[0] == '{' {
		var wrapper struct {
			Sessions []json.RawMessage `json:"sessions"`
		}
		if err := json.Unmarshal(value, &wrapper); err != nil {
			return nil, err
		}
		elements = wrapper.Sessions
	} else if err := json.Unmarshal(value, &elements); err != nil {
		return nil, err
	}

	sessions := make([]planner.RawSession, 0, len(elements))
	for _, element := range elements {
		var item rawItem
		if err := json.Unmarshal(element, &item); err != nil {
			sessions = append(sessions, planner.RawSession{})
			continue
		}
		sessions = append(sessions, item.session())
	}
	return sessions, nil
}
