package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/planner"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/export"
)

type studyScheduleRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.StudySchedule) error
	ListByUser(ctx context.Context, userID string) ([]models.StudySchedule, error)
	FindByID(ctx context.Context, id string) (*models.StudySchedule, error)
	Touch(ctx context.Context, exec sqlx.ExtContext, id string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type studySessionRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudySession) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.StudySession, error)
	SetCompleted(ctx context.Context, exec sqlx.ExtContext, scheduleID, sessionID string, completed bool) (*models.StudySession, error)
}

type proposalSource interface {
	Propose(ctx context.Context, req planner.Request) ([]planner.RawSession, error)
	Enabled() bool
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// StudyScheduleConfig bounds what a single request may ask for.
type StudyScheduleConfig struct {
	AIEnabled    bool
	MaxRangeDays int
	MaxTopics    int
	CacheTTL     time.Duration
}

// StudyScheduleService turns scheduling requests into stored study schedules.
type StudyScheduleService struct {
	schedules studyScheduleRepository
	sessions  studySessionRepository
	tx        txProvider
	allocator *planner.Allocator
	proposals proposalSource
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    StudyScheduleConfig
}

// NewStudyScheduleService wires the service. proposals, cache and metrics may be nil.
func NewStudyScheduleService(
	schedules studyScheduleRepository,
	sessions studySessionRepository,
	tx txProvider,
	allocator *planner.Allocator,
	proposals proposalSource,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudyScheduleConfig,
) *StudyScheduleService {
	if allocator == nil {
		allocator = planner.NewAllocator(planner.MergePerDay)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 366
	}
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = 100
	}
	return &StudyScheduleService{
		schedules: schedules,
		sessions:  sessions,
		tx:        tx,
		allocator: allocator,
		proposals: proposals,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

type scheduleMeta struct {
	MergePolicy       string `json:"mergePolicy"`
	ProposalRequested bool   `json:"proposalRequested"`
	ProposalAccepted  int    `json:"proposalAccepted"`
	ProposalRejected  int    `json:"proposalRejected"`
}

type plannedSchedule struct {
	title   string
	request planner.Request
	result  *planner.Result
	meta    scheduleMeta
}

type cachedSchedule struct {
	UserID   string                    `json:"userId"`
	Schedule dto.StudyScheduleResponse `json:"schedule"`
}

func scheduleCacheKey(id string) string {
	return fmt.Sprintf("study_schedule:%s", id)
}

// Preview allocates a schedule without storing it.
func (s *StudyScheduleService) Preview(ctx context.Context, req dto.CreateStudyScheduleRequest) (*dto.StudyScheduleResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.StudyScheduleResponse{
		Title:              plan.title,
		StartDate:          planner.FormatDate(plan.request.StartDate),
		EndDate:            planner.FormatDate(plan.request.EndDate),
		StudyMinutesPerDay: plan.request.StudyMinutesPerDay,
		RestDays:           plan.request.RestDays,
		Source:             string(plan.result.Source),
		Sessions:           make([]dto.StudySessionResponse, 0, len(plan.result.Sessions)),
		Allocation:         plan.meta.summary(string(plan.result.Source)),
	}
	for _, session := range plan.result.Sessions {
		resp.Sessions = append(resp.Sessions, dto.StudySessionResponse{
			Date:            planner.FormatDate(session.Date),
			Topic:           session.Topic,
			DurationMinutes: session.DurationMinutes,
			Priority:        string(session.Priority),
			Source:          string(session.Source),
			Completed:       session.Completed,
		})
	}
	return resp, nil
}

// Create allocates a schedule and stores it with its sessions in one transaction.
func (s *StudyScheduleService) Create(ctx context.Context, userID string, req dto.CreateStudyScheduleRequest) (*dto.StudyScheduleResponse, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, marshalErr := json.Marshal(plan.meta)
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}
	record := &models.StudySchedule{
		UserID:             userID,
		Title:              plan.title,
		StartDate:          plan.request.StartDate,
		EndDate:            plan.request.EndDate,
		StudyMinutesPerDay: plan.request.StudyMinutesPerDay,
		RestDays:           toInt64Array(plan.request.RestDays),
		Source:             string(plan.result.Source),
		Meta:               types.JSONText(metaBytes),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedules.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study schedule")
		return nil, err
	}

	sessions := toSessionModels(record.ID, plan.result.Sessions)
	if err = s.sessions.InsertBatch(ctx, tx, sessions); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist study sessions")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit study schedule")
		return nil, err
	}

	s.logger.Info("study schedule created",
		zap.String("schedule_id", record.ID),
		zap.String("user_id", userID),
		zap.String("source", record.Source),
		zap.Int("sessions", len(sessions)),
	)
	return toScheduleResponse(record, sessions), nil
}

// List returns the caller's schedules without sessions, newest first.
func (s *StudyScheduleService) List(ctx context.Context, userID string) ([]dto.StudyScheduleResponse, error) {
	records, err := s.schedules.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study schedules")
	}
	items := make([]dto.StudyScheduleResponse, 0, len(records))
	for i := range records {
		items = append(items, *toScheduleResponse(&records[i], nil))
	}
	return items, nil
}

// Get returns one of the caller's schedules with its sessions.
func (s *StudyScheduleService) Get(ctx context.Context, userID, id string) (*dto.StudyScheduleResponse, error) {
	key := scheduleCacheKey(id)
	var cached cachedSchedule
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		if cached.UserID != userID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study schedule not found")
		}
		return &cached.Schedule, nil
	}

	record, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	sessions, err := s.sessions.ListBySchedule(ctx, id)
	s.metrics.ObserveDBQuery("study_session.list", time.Since(started))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study sessions")
	}

	resp := toScheduleResponse(record, sessions)
	_ = s.cache.Set(ctx, key, cachedSchedule{UserID: userID, Schedule: *resp}, s.config.CacheTTL)
	return resp, nil
}

// SetSessionCompleted marks a session done or not done.
func (s *StudyScheduleService) SetSessionCompleted(ctx context.Context, userID, scheduleID, sessionID string, req dto.UpdateSessionRequest) (*dto.StudySessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session update payload")
	}
	if _, err := s.owned(ctx, userID, scheduleID); err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	session, err := s.sessions.SetCompleted(ctx, tx, scheduleID, sessionID, *req.Completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "study session not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update study session")
		return nil, err
	}
	if err = s.schedules.Touch(ctx, tx, scheduleID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update study schedule")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit session update")
		return nil, err
	}

	_ = s.cache.Delete(ctx, scheduleCacheKey(scheduleID))
	resp := toSessionResponse(*session)
	return &resp, nil
}

// Stats reports progress through one of the caller's schedules.
func (s *StudyScheduleService) Stats(ctx context.Context, userID, id string) (*dto.StudyScheduleStats, error) {
	schedule, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	start, startErr := planner.ParseDate(schedule.StartDate)
	end, endErr := planner.ParseDate(schedule.EndDate)
	if startErr != nil || endErr != nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "stored schedule has malformed dates")
	}

	stats := &dto.StudyScheduleStats{
		ScheduleID: schedule.ID,
		StudyDays:  countStudyDays(start, end, schedule.RestDays),
		ByPriority: map[string]dto.PriorityStats{},
	}
	for _, session := range schedule.Sessions {
		tier := stats.ByPriority[session.Priority]
		tier.Sessions++
		tier.PlannedMinutes += session.DurationMinutes
		stats.TotalSessions++
		stats.PlannedMinutes += session.DurationMinutes
		if session.Completed {
			tier.Completed++
			tier.CompletedMinutes += session.DurationMinutes
			stats.CompletedSessions++
			stats.CompletedMinutes += session.DurationMinutes
		}
		stats.ByPriority[session.Priority] = tier
	}
	if stats.TotalSessions > 0 {
		rate := float64(stats.CompletedSessions) / float64(stats.TotalSessions) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}

// Delete removes one of the caller's schedules.
func (s *StudyScheduleService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "study schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study schedule")
	}
	_ = s.cache.Delete(ctx, scheduleCacheKey(id))
	s.logger.Info("study schedule deleted", zap.String("schedule_id", id), zap.String("user_id", userID))
	return nil
}

// Export renders one of the caller's schedules as a downloadable file.
func (s *StudyScheduleService) Export(ctx context.Context, userID, id, format string) (*dto.ExportFile, error) {
	renderer, err := export.ForFormat(export.Format(strings.ToLower(strings.TrimSpace(format))))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupported.Code, appErrors.ErrUnsupported.Status, "format must be csv or pdf")
	}
	schedule, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(scheduleDocument(schedule))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render study schedule")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("study-schedule-%s.%s", schedule.StartDate, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *StudyScheduleService) owned(ctx context.Context, userID, id string) (*models.StudySchedule, error) {
	started := time.Now()
	record, err := s.schedules.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("study_schedule.find", time.Since(started))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study schedule")
	}
	if record.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "study schedule not found")
	}
	return record, nil
}

func (s *StudyScheduleService) plan(ctx context.Context, req dto.CreateStudyScheduleRequest) (*plannedSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study schedule payload")
	}
	if len(req.Topics) > s.config.MaxTopics {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d topics are allowed", s.config.MaxTopics))
	}

	preq, err := toPlannerRequest(req)
	if err != nil {
		return nil, err
	}
	if span := planner.SpanDays(preq.StartDate, preq.EndDate); span > s.config.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range spans %d days, the limit is %d", span, s.config.MaxRangeDays))
	}

	started := time.Now()
	meta := scheduleMeta{MergePolicy: string(s.allocator.Policy())}
	var proposal []planner.RawSession
	if req.UseAI && s.config.AIEnabled && s.proposals != nil && s.proposals.Enabled() {
		meta.ProposalRequested = true
		if preq.Validate() == nil {
			items, propErr := s.proposals.Propose(ctx, preq)
			if propErr != nil {
				s.logger.Warn("study schedule proposal unavailable, using fallback", zap.Error(propErr))
			} else {
				proposal = items
			}
		}
	}

	result, err := s.allocator.Allocate(preq, proposal)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidRequest) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.TrimPrefix(err.Error(), planner.ErrInvalidRequest.Error()+": "))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate study schedule")
	}
	meta.ProposalAccepted = result.ProposalAccepted
	meta.ProposalRejected = result.ProposalRejected

	s.metrics.ObserveAllocation(string(result.Source), result.ProposalAccepted, result.ProposalRejected, time.Since(started))
	s.logger.Debug("study schedule allocated",
		zap.String("source", string(result.Source)),
		zap.String("merge_policy", meta.MergePolicy),
		zap.Int("sessions", len(result.Sessions)),
		zap.Int("proposal_accepted", result.ProposalAccepted),
		zap.Int("proposal_rejected", result.ProposalRejected),
	)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("Study plan %s to %s", planner.FormatDate(preq.StartDate), planner.FormatDate(preq.EndDate))
	}
	return &plannedSchedule{title: title, request: preq, result: result, meta: meta}, nil
}

func toPlannerRequest(req dto.CreateStudyScheduleRequest) (planner.Request, error) {
	start, err := planner.ParseDate(req.StartDate)
	if err != nil {
		return planner.Request{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startDate must be YYYY-MM-DD")
	}
	end, err := planner.ParseDate(req.EndDate)
	if err != nil {
		return planner.Request{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "endDate must be YYYY-MM-DD")
	}

	topics := make([]planner.Topic, 0, len(req.Topics))
	for _, t := range req.Topics {
		priority, ok := planner.ParsePriority(t.Priority)
		if !ok {
			// left as-is so the allocator reports it
			priority = planner.Priority(t.Priority)
		}
		topics = append(topics, planner.Topic{Name: strings.TrimSpace(t.Topic), Priority: priority})
	}

	rest := req.RestDays
	if rest == nil {
		rest = []int{}
	}
	return planner.Request{
		StartDate:          start,
		EndDate:            end,
		StudyMinutesPerDay: int(math.Round(req.StudyHoursPerDay * 60)),
		RestDays:           rest,
		Topics:             topics,
	}, nil
}

func toSessionModels(scheduleID string, sessions []planner.Session) []models.StudySession {
	out := make([]models.StudySession, 0, len(sessions))
	position := 0
	for i, session := range sessions {
		if i > 0 && !session.Date.Equal(sessions[i-1].Date) {
			position = 0
		}
		out = append(out, models.StudySession{
			ScheduleID:      scheduleID,
			SessionDate:     session.Date,
			Position:        position,
			Topic:           session.Topic,
			DurationMinutes: session.DurationMinutes,
			Priority:        string(session.Priority),
			Source:          string(session.Source),
			Completed:       session.Completed,
		})
		position++
	}
	return out
}

func toInt64Array(days []int) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(days))
	for _, d := range days {
		out = append(out, int64(d))
	}
	return out
}

func (m scheduleMeta) summary(source string) *dto.AllocationSummary {
	return &dto.AllocationSummary{
		Source:            source,
		MergePolicy:       m.MergePolicy,
		ProposalRequested: m.ProposalRequested,
		ProposalAccepted:  m.ProposalAccepted,
		ProposalRejected:  m.ProposalRejected,
	}
}

func toScheduleResponse(record *models.StudySchedule, sessions []models.StudySession) *dto.StudyScheduleResponse {
	rest := make([]int, 0, len(record.RestDays))
	for _, d := range record.RestDays {
		rest = append(rest, int(d))
	}
	created := record.CreatedAt
	resp := &dto.StudyScheduleResponse{
		ID:                 record.ID,
		Title:              record.Title,
		StartDate:          planner.FormatDate(record.StartDate),
		EndDate:            planner.FormatDate(record.EndDate),
		StudyMinutesPerDay: record.StudyMinutesPerDay,
		RestDays:           rest,
		Source:             record.Source,
		CreatedAt:          &created,
	}
	var meta scheduleMeta
	if len(record.Meta) > 0 && json.Unmarshal(record.Meta, &meta) == nil {
		resp.Allocation = meta.summary(record.Source)
	}
	if sessions != nil {
		resp.Sessions = make([]dto.StudySessionResponse, 0, len(sessions))
		for _, session := range sessions {
			resp.Sessions = append(resp.Sessions, toSessionResponse(session))
		}
	}
	return resp
}

func toSessionResponse(session models.StudySession) dto.StudySessionResponse {
	return dto.StudySessionResponse{
		ID:              session.ID,
		Date:            planner.FormatDate(session.SessionDate),
		Topic:           session.Topic,
		DurationMinutes: session.DurationMinutes,
		Priority:        session.Priority,
		Source:          session.Source,
		Completed:       session.Completed,
		CompletedAt:     session.CompletedAt,
	}
}

func countStudyDays(start, end time.Time, restDays []int) int {
	var rest [7]bool
	for _, d := range restDays {
		if d >= 0 && d < 7 {
			rest[d] = true
		}
	}
	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !rest[day.Weekday()] {
			count++
		}
	}
	return count
}

func scheduleDocument(schedule *dto.StudyScheduleResponse) export.Document {
	doc := export.Document{
		Title:    schedule.Title,
		Subtitle: fmt.Sprintf("%s to %s, %d minutes per study day", schedule.StartDate, schedule.EndDate, schedule.StudyMinutesPerDay),
		Headers:  []string{"Date", "Weekday", "Topic", "Priority", "Minutes", "Completed"},
		Rows:     make([][]string, 0, len(schedule.Sessions)),
	}
	for _, session := range schedule.Sessions {
		weekday := ""
		if d, err := planner.ParseDate(session.Date); err == nil {
			weekday = d.Weekday().String()
		}
		completed := "no"
		if session.Completed {
			completed = "yes"
		}
		doc.Rows = append(doc.Rows, []string{
			session.Date,
			weekday,
			session.Topic,
			session.Priority,
			fmt.Sprintf("%d", session.DurationMinutes),
			completed,
		})
	}
	return doc
}
