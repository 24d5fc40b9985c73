package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestSpanDaysAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	start := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
	end := time.Date(2024, 4, 1, 12, 0, 0, 0, loc)
	assert.Equal(t, 3, SpanDays(start, end))
}

func TestStudyDaysSkipsRest(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	end := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	days := studyDays(start, end, newRestSet([]int{1, 3}))
	require.Len(t, days, 5)
	assert.Equal(t, 1, days[0].offset)
	assert.Equal(t, time.Tuesday, days[0].date.Weekday())
}

func TestParsePriority(t *testing.T) {
	cases := map[string]Priority{
		"":       PriorityMedium,
		"High":   PriorityHigh,
		" low ":  PriorityLow,
		"MEDIUM": PriorityMedium,
	}
	for raw, want := range cases {
		got, ok := ParsePriority(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	_, ok := ParsePriority("critical")
	assert.False(t, ok)

	assert.Equal(t, DurationHigh, PriorityHigh.SessionMinutes())
	assert.Equal(t, DurationMedium, PriorityMedium.SessionMinutes())
	assert.Equal(t, DurationLow, PriorityLow.SessionMinutes())
}
