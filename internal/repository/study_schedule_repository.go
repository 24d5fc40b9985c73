package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/study-planner-api/internal/models"
)

const studyScheduleColumns = `id, user_id, title, start_date, end_date, study_minutes_per_day, rest_days, source, meta, created_at, updated_at`

// StudyScheduleRepository persists schedule headers.
type StudyScheduleRepository struct {
	db *sqlx.DB
}

// NewStudyScheduleRepository constructs the repository.
func NewStudyScheduleRepository(db *sqlx.DB) *StudyScheduleRepository {
	return &StudyScheduleRepository{db: db}
}

func (r *StudyScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a schedule, filling id, meta and timestamps when empty.
func (r *StudyScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.StudySchedule) error {
	if schedule == nil {
		return fmt.Errorf("study schedule payload is nil")
	}
	if schedule.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText(`{}`)
	}
	if schedule.RestDays == nil {
		schedule.RestDays = pq.Int64Array{}
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `
INSERT INTO study_schedules (id, user_id, title, start_date, end_date, study_minutes_per_day, rest_days, source, meta, created_at, updated_at)
VALUES (:id, :user_id, :title, :start_date, :end_date, :study_minutes_per_day, :rest_days, :source, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert study schedule: %w", err)
	}
	return nil
}

// ListByUser returns a user's schedules, newest first.
func (r *StudyScheduleRepository) ListByUser(ctx context.Context, userID string) ([]models.StudySchedule, error) {
	query := `SELECT ` + studyScheduleColumns + ` FROM study_schedules WHERE user_id = $1 ORDER BY created_at DESC`
	var schedules []models.StudySchedule
	if err := r.db.SelectContext(ctx, &schedules, query, userID); err != nil {
		return nil, fmt.Errorf("list study schedules: %w", err)
	}
	return schedules, nil
}

// FindByID loads a schedule. It returns sql.ErrNoRows when absent.
func (r *StudyScheduleRepository) FindByID(ctx context.Context, id string) (*models.StudySchedule, error) {
	query := `SELECT ` + studyScheduleColumns + ` FROM study_schedules WHERE id = $1`
	var schedule models.StudySchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Touch bumps updated_at after a change to one of the schedule's sessions.
func (r *StudyScheduleRepository) Touch(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE study_schedules SET updated_at = $1 WHERE id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("touch study schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule; sessions cascade.
func (r *StudyScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM study_schedules WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete study schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("study schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
