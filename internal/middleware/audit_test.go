package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/study-planner-api/internal/models"
)

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1"})
	})
	r.DELETE("/study-schedules/:id", Audit(zap.New(core), "study_schedule.delete"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/study-schedules", Audit(zap.New(core), "study_schedule.create"), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/study-schedules/sched-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/study-schedules", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "study_schedule.delete", fields["action"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "sched-1", fields["resource_id"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}
