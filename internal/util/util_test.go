package util

import (
	"errors"
	"lms_backend/internal/model"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "t@example.com", Role: model.Teacher}
	user.ID = 7

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.True(t, claims.IsStaff())

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestParseProbeOutput(t *testing.T) {
	out := `{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720}
		],
		"format": {"duration": "93.5", "size": "1048576", "format_name": "mov,mp4,m4a"}
	}`
	info, err := ParseProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.InDelta(t, 93.5, info.Duration, 0.001)
	assert.EqualValues(t, 1048576, info.Size)
	assert.Equal(t, "mov", info.Format)

	info, err = ParseProbeOutput(`{"streams": [], "format": {}}`)
	require.NoError(t, err)
	assert.Equal(t, "unknown", info.Format)

	_, err = ParseProbeOutput("not json")
	assert.Error(t, err)
}

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
	}{
		{ErrViewLimitReached, http.StatusForbidden},
		{ErrNotPublished, http.StatusForbidden},
		{ErrProgressNotFound, http.StatusNotFound},
		{ErrAlreadyPurchased, http.StatusConflict},
		{ErrInvalidPosition, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			HandleServiceError(c, tt.err)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0&limit=500", nil)
	page, limit := Pagination(c, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=50", nil)
	page, limit = Pagination(c, 20)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)
}
