package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema creates the study planner tables when they do not exist yet.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS study_schedules (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	study_minutes_per_day INTEGER NOT NULL,
	rest_days INTEGER[] NOT NULL DEFAULT '{}',
	source TEXT NOT NULL,
	meta JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_study_schedules_user ON study_schedules (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS study_sessions (
	id UUID PRIMARY KEY,
	schedule_id UUID NOT NULL REFERENCES study_schedules(id) ON DELETE CASCADE,
	session_date DATE NOT NULL,
	position INTEGER NOT NULL,
	topic TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
	priority TEXT NOT NULL,
	source TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_schedule ON study_sessions (schedule_id, session_date, position)`,
}

// Migrate applies Schema statements in order.
func Migrate(ctx context.Context, db sqlx.ExecerContext) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
