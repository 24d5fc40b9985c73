package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.got = token
	return s.claims, s.err
}

func newJWTRouter(v tokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", JWT(v), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func TestJWTMiddleware(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{UserID: "user-1"}}
	r := newJWTRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
	assert.Equal(t, "abc.def", v.got)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	cases := map[string]struct {
		header string
		err    error
		status int
	}{
		"missing":  {header: "", status: http.StatusUnauthorized},
		"scheme":   {header: "Basic abc", status: http.StatusUnauthorized},
		"empty":    {header: "Bearer ", status: http.StatusUnauthorized},
		"expired":  {header: "Bearer abc", err: appErrors.ErrTokenExpired, status: http.StatusUnauthorized},
		"internal": {header: "Bearer abc", err: assert.AnError, status: http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := newJWTRouter(&stubValidator{err: tc.err})
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
