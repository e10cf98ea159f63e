package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret"

type progressFixture struct {
	router    *gin.Engine
	users     *repository.UserRepository
	courses   *service.CourseService
	chapters  *service.ChapterService
	teacher   *model.User
	course    *model.Course
	chapterID string
}

func newProgressFixture(t *testing.T, maxViews int) *progressFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	}

	users := repository.NewUserRepository(db)
	purchases := repository.NewPurchaseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	access := service.NewAccessService(purchases)
	courses := service.NewCourseService(repository.NewCourseRepository(db), purchases, access)
	chapters := service.NewChapterService(repository.NewChapterRepository(db), progressRepo, courses, access, service.NewStorageService(cfg))
	progress := service.NewProgressService(progressRepo, repository.NewAssessmentRepository(db), courses, chapters, access)

	pc := NewProgressController(progress)
	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(cfg))
	api.PUT("/courses/:courseId/chapters/:chapterId/progress", pc.MarkComplete)
	api.DELETE("/courses/:courseId/chapters/:chapterId/progress", pc.ResetProgress)
	api.GET("/courses/:courseId/progress", pc.CourseProgress)

	f := &progressFixture{router: r, users: users, courses: courses, chapters: chapters}
	f.teacher = f.createUser(t, model.Teacher)

	teacherClaims := &util.Claims{UserID: f.teacher.ID, Role: model.Teacher}
	f.course, err = courses.Create(context.Background(), teacherClaims, service.CourseRequest{
		Title:       ptr("物理"),
		Price:       ptr(10.0),
		IsPublished: ptr(true),
	})
	require.NoError(t, err)

	req := service.ChapterRequest{Title: ptr("力学"), IsPublished: ptr(true)}
	if maxViews > 0 {
		req.MaxViews = ptr(maxViews)
	}
	chapter, err := chapters.Create(context.Background(), teacherClaims, f.course.ID, req)
	require.NoError(t, err)
	f.chapterID = chapter.ID
	return f
}

func (f *progressFixture) createUser(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{
		Name:     string(role),
		Email:    fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		Password: "x",
		Role:     role,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *progressFixture) do(t *testing.T, method, path string, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != nil {
		token, err := util.GenerateJWT(user, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *progressFixture) progressPath(chapterID string) string {
	return "/api/courses/" + f.course.ID + "/chapters/" + chapterID + "/progress"
}

func ptr[T any](v T) *T { return &v }

func TestMarkCompleteStatusCodes(t *testing.T) {
	f := newProgressFixture(t, 1)
	student := f.createUser(t, model.Student)

	w := f.do(t, http.MethodPut, f.progressPath(f.chapterID), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPut, f.progressPath(f.chapterID), student)
	assert.Equal(t, http.StatusForbidden, w.Code, "not purchased")

	_, err := f.courses.Grant(context.Background(), student.ID, f.course.ID)
	require.NoError(t, err)

	w = f.do(t, http.MethodPut, f.progressPath(f.chapterID), student)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data service.ProgressState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.IsCompleted)
	assert.EqualValues(t, 1, body.Data.ViewCount)

	w = f.do(t, http.MethodPut, f.progressPath(f.chapterID), student)
	assert.Equal(t, http.StatusForbidden, w.Code, "view limit reached")

	w = f.do(t, http.MethodPut, f.progressPath("missing"), student)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetProgressStatusCodes(t *testing.T) {
	f := newProgressFixture(t, 0)
	student := f.createUser(t, model.Student)
	_, err := f.courses.Grant(context.Background(), student.ID, f.course.ID)
	require.NoError(t, err)

	w := f.do(t, http.MethodDelete, f.progressPath(f.chapterID), student)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, f.progressPath(f.chapterID), student)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, f.progressPath(f.chapterID), student)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/courses/"+f.course.ID+"/progress", student)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data service.CourseProgress `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.TotalItems)
	assert.Zero(t, body.Data.CompletedItems)
}
