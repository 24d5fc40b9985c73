package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/response"
)

type studyScheduler interface {
	Create(ctx context.Context, userID string, req dto.CreateStudyScheduleRequest) (*dto.StudyScheduleResponse, error)
	Preview(ctx context.Context, req dto.CreateStudyScheduleRequest) (*dto.StudyScheduleResponse, error)
	List(ctx context.Context, userID string) ([]dto.StudyScheduleResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.StudyScheduleResponse, error)
	SetSessionCompleted(ctx context.Context, userID, scheduleID, sessionID string, req dto.UpdateSessionRequest) (*dto.StudySessionResponse, error)
	Stats(ctx context.Context, userID, id string) (*dto.StudyScheduleStats, error)
	Delete(ctx context.Context, userID, id string) error
	Export(ctx context.Context, userID, id, format string) (*dto.ExportFile, error)
}

// StudyScheduleHandler exposes study schedule endpoints.
type StudyScheduleHandler struct {
	service studyScheduler
}

// NewStudyScheduleHandler constructs the handler.
func NewStudyScheduleHandler(svc *service.StudyScheduleService) *StudyScheduleHandler {
	return &StudyScheduleHandler{service: svc}
}

// Create godoc
// @Summary Generate and save a study schedule
// @Description Distributes topics over the non-rest days of the range. With useAI the generator's proposal is merged in after validation.
// @Tags StudySchedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudyScheduleRequest true "Schedule request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules [post]
func (h *StudyScheduleHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.CreateStudyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid study schedule payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Preview godoc
// @Summary Preview a study schedule without saving it
// @Tags StudySchedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudyScheduleRequest true "Schedule request"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules/preview [post]
func (h *StudyScheduleHandler) Preview(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	var req dto.CreateStudyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid study schedule payload"))
		return
	}
	schedule, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, schedule, map[string]interface{}{"mode": "preview"})
}

// List godoc
// @Summary List the caller's study schedules
// @Tags StudySchedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules [get]
func (h *StudyScheduleHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get a study schedule with its sessions
// @Tags StudySchedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules/{id} [get]
func (h *StudyScheduleHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	schedule, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, schedule)
}

// Stats godoc
// @Summary Progress totals for a study schedule
// @Tags StudySchedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules/{id}/stats [get]
func (h *StudyScheduleHandler) Stats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Export godoc
// @Summary Download a study schedule
// @Tags StudySchedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /study-schedules/{id}/export [get]
func (h *StudyScheduleHandler) Export(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), userID, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// UpdateSession godoc
// @Summary Mark a session completed or not completed
// @Tags StudySchedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param sessionId path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /study-schedules/{id}/sessions/{sessionId} [patch]
func (h *StudyScheduleHandler) UpdateSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.service.SetSessionCompleted(c.Request.Context(), userID, c.Param("id"), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Delete godoc
// @Summary Delete a study schedule
// @Tags StudySchedules
// @Param id path string true "Schedule ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /study-schedules/{id} [delete]
func (h *StudyScheduleHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
