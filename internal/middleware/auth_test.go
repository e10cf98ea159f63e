package middleware

import (
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	auth := r.Group("/", AuthMiddleware(cfg))
	auth.GET("/me", ok)
	auth.GET("/teacher", RoleMiddleware(model.Teacher), ok)
	auth.GET("/admin", RoleMiddleware(model.Admin), ok)
	return r
}

func tokenFor(t *testing.T, role model.UserRole, secret string) string {
	t.Helper()
	u := &model.User{Role: role, Email: string(role) + "@example.com"}
	u.ID = 1
	token, err := util.GenerateJWT(u, secret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s"}}
	r := newRouter(cfg)

	tests := []struct {
		name string
		path string
		role model.UserRole
		want int
	}{
		{"student on auth route", "/me", model.Student, http.StatusOK},
		{"student on teacher route", "/teacher", model.Student, http.StatusForbidden},
		{"teacher on teacher route", "/teacher", model.Teacher, http.StatusOK},
		{"teacher on admin route", "/admin", model.Teacher, http.StatusForbidden},
		{"admin on teacher route", "/teacher", model.Admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role, "s"))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	r := newRouter(&config.Config{JWT: config.JWTConfig{Secret: "s"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.Student, "wrong"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+tokenFor(t, model.Student, "s"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
