package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// StudySchedule is a persisted allocation for one user.
type StudySchedule struct {
	ID                 string         `db:"id" json:"id"`
	UserID             string         `db:"user_id" json:"user_id"`
	Title              string         `db:"title" json:"title"`
	StartDate          time.Time      `db:"start_date" json:"start_date"`
	EndDate            time.Time      `db:"end_date" json:"end_date"`
	StudyMinutesPerDay int            `db:"study_minutes_per_day" json:"study_minutes_per_day"`
	RestDays           pq.Int64Array  `db:"rest_days" json:"rest_days"`
	Source             string         `db:"source" json:"source"`
	Meta               types.JSONText `db:"meta" json:"meta"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// StudySession is one stored session. Position orders sessions within a date.
type StudySession struct {
	ID              string     `db:"id" json:"id"`
	ScheduleID      string     `db:"schedule_id" json:"schedule_id"`
	SessionDate     time.Time  `db:"session_date" json:"session_date"`
	Position        int        `db:"position" json:"position"`
	Topic           string     `db:"topic" json:"topic"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Priority        string     `db:"priority" json:"priority"`
	Source          string     `db:"source" json:"source"`
	Completed       bool       `db:"completed" json:"completed"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
