package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/models"
)

func newStudyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudyScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_schedules")).
		WithArgs(sqlmock.AnyArg(), "user-1", "Finals", start, start.AddDate(0, 0, 6), 120, sqlmock.AnyArg(), "fallback", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := &models.StudySchedule{
		UserID:             "user-1",
		Title:              "Finals",
		StartDate:          start,
		EndDate:            start.AddDate(0, 0, 6),
		StudyMinutesPerDay: 120,
		Source:             "fallback",
	}
	require.NoError(t, repo.Create(context.Background(), nil, schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.JSONEq(t, `{}`, string(schedule.Meta))
	assert.NotNil(t, schedule.RestDays)
	assert.False(t, schedule.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyScheduleRepositoryCreateRequiresUser(t *testing.T) {
	db, _, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	err := repo.Create(context.Background(), nil, &models.StudySchedule{})
	assert.Error(t, err)
}

func TestStudyScheduleRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "start_date", "end_date", "study_minutes_per_day", "rest_days", "source", "meta", "created_at", "updated_at"}).
		AddRow("sched-1", "user-1", "Finals", now, now, 90, "{0,6}", "mixed", []byte(`{"mergePolicy":"per_day"}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM study_schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	schedule, err := repo.FindByID(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", schedule.UserID)
	assert.Equal(t, pq.Int64Array{0, 6}, schedule.RestDays)
	assert.Equal(t, "mixed", schedule.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyScheduleRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM study_schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudyScheduleRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "start_date", "end_date", "study_minutes_per_day", "rest_days", "source", "meta", "created_at", "updated_at"}).
		AddRow("sched-2", "user-1", "", now, now, 60, "{}", "fallback", []byte(`{}`), now, now).
		AddRow("sched-1", "user-1", "", now, now, 60, "{}", "ai", []byte(`{}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM study_schedules WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("user-1").
		WillReturnRows(rows)

	schedules, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "sched-2", schedules[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), nil, "sched-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_schedules WHERE id = $1")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), nil, "gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_sessions")).
		WithArgs(sqlmock.AnyArg(), "sched-1", day, 0, "Algebra", 90, "high", "fallback", false, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_sessions")).
		WithArgs(sqlmock.AnyArg(), "sched-1", day, 1, "Poetry", 45, "low", "fallback", false, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sessions := []models.StudySession{
		{ScheduleID: "sched-1", SessionDate: day, Position: 0, Topic: "Algebra", DurationMinutes: 90, Priority: "high", Source: "fallback"},
		{ScheduleID: "sched-1", SessionDate: day, Position: 1, Topic: "Poetry", DurationMinutes: 45, Priority: "low", Source: "fallback"},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, sessions))
	assert.NotEmpty(t, sessions[0].ID)
	assert.NotEqual(t, sessions[0].ID, sessions[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "session_date", "position", "topic", "duration_minutes", "priority", "source", "completed", "completed_at", "created_at"}).
		AddRow("s-1", "sched-1", day, 0, "Algebra", 90, "high", "ai", true, day, day).
		AddRow("s-2", "sched-1", day, 1, "Poetry", 45, "low", "ai", false, nil, day)
	mock.ExpectQuery(regexp.QuoteMeta("FROM study_sessions WHERE schedule_id = $1 ORDER BY session_date ASC, position ASC")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	sessions, err := repo.ListBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.NotNil(t, sessions[0].CompletedAt)
	assert.Nil(t, sessions[1].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositorySetCompleted(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "session_date", "position", "topic", "duration_minutes", "priority", "source", "completed", "completed_at", "created_at"}).
		AddRow("s-1", "sched-1", day, 0, "Algebra", 90, "high", "ai", true, day, day)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE study_sessions SET completed = $1")).
		WithArgs(true, sqlmock.AnyArg(), "s-1", "sched-1").
		WillReturnRows(rows)

	session, err := repo.SetCompleted(context.Background(), nil, "sched-1", "s-1", true)
	require.NoError(t, err)
	assert.True(t, session.Completed)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE study_sessions SET completed = $1")).
		WithArgs(false, nil, "s-9", "sched-1").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.SetCompleted(context.Background(), nil, "sched-1", "s-9", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
