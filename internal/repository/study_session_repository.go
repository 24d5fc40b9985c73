package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

const studySessionColumns = `id, schedule_id, session_date, position, topic, duration_minutes, priority, source, completed, completed_at, created_at`

// StudySessionRepository persists the sessions belonging to a schedule.
type StudySessionRepository struct {
	db *sqlx.DB
}

// NewStudySessionRepository constructs the repository.
func NewStudySessionRepository(db *sqlx.DB) *StudySessionRepository {
	return &StudySessionRepository{db: db}
}

func (r *StudySessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes sessions in order.
func (r *StudySessionRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudySession) error {
	if len(sessions) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO study_sessions (id, schedule_id, session_date, position, topic, duration_minutes, priority, source, completed, completed_at, created_at)
VALUES (:id, :schedule_id, :session_date, :position, :topic, :duration_minutes, :priority, :source, :completed, :completed_at, :created_at)`

	for i := range sessions {
		session := &sessions[i]
		if session.ScheduleID == "" {
			return fmt.Errorf("session %d has no schedule_id", i)
		}
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, session); err != nil {
			return fmt.Errorf("insert study session: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns sessions in calendar order.
func (r *StudySessionRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.StudySession, error) {
	query := `SELECT ` + studySessionColumns + ` FROM study_sessions WHERE schedule_id = $1 ORDER BY session_date ASC, position ASC`
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	return sessions, nil
}

// SetCompleted flips a session's completion state. It returns sql.ErrNoRows when
// the session does not belong to the schedule.
func (r *StudySessionRepository) SetCompleted(ctx context.Context, exec sqlx.ExtContext, scheduleID, sessionID string, completed bool) (*models.StudySession, error) {
	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	query := `UPDATE study_sessions SET completed = $1, completed_at = $2
WHERE id = $3 AND schedule_id = $4
RETURNING ` + studySessionColumns
	var session models.StudySession
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, completed, completedAt, sessionID, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("update study session completion: %w", err)
	}
	return &session, nil
}
