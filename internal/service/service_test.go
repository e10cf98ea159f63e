package service

import (
	"context"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db          *gorm.DB
	users       *repository.UserRepository
	courses     *CourseService
	chapters    *ChapterService
	progress    *ProgressService
	assessments *AssessmentService
	dashboard   *DashboardService
	userSvc     *UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func newTestEnv(t *testing.T, cache ResultCache) *testEnv {
	t.Helper()
	db := newTestDB(t)

	users := repository.NewUserRepository(db)
	purchases := repository.NewPurchaseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	cfg := &config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}}

	access := NewAccessService(purchases)
	courses := NewCourseService(courseRepo, purchases, access)
	chapters := NewChapterService(repository.NewChapterRepository(db), progressRepo, courses, access, NewStorageService(cfg))
	progress := NewProgressService(progressRepo, assessmentRepo, courses, chapters, access)

	return &testEnv{
		db:          db,
		users:       users,
		courses:     courses,
		chapters:    chapters,
		progress:    progress,
		assessments: NewAssessmentService(assessmentRepo, courses, access, cache),
		dashboard:   NewDashboardService(users, courseRepo, purchases, assessmentRepo, progress),
		userSvc:     NewUserService(users),
	}
}

func (e *testEnv) createUser(t *testing.T, role model.UserRole, balance float64) *util.Claims {
	t.Helper()
	u := &model.User{
		Name:     string(role),
		Email:    fmt.Sprintf("%s-%d@example.com", role, e.userCount()),
		Password: "x",
		Role:     role,
		Balance:  balance,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return &util.Claims{UserID: u.ID, Role: role, Email: u.Email}
}

func (e *testEnv) userCount() int {
	var n int64
	e.db.Model(&model.User{}).Count(&n)
	return int(n)
}

func (e *testEnv) createCourse(t *testing.T, teacher *util.Claims, price float64, published bool) *model.Course {
	t.Helper()
	course, err := e.courses.Create(context.Background(), teacher, CourseRequest{
		Title:       ptr("代数基础"),
		Price:       ptr(price),
		Grade:       ptr("七年级"),
		Subject:     ptr("数学"),
		IsPublished: ptr(published),
	})
	require.NoError(t, err)
	return course
}

func (e *testEnv) createChapter(t *testing.T, teacher *util.Claims, courseID, title string, maxViews int, free bool) *model.Chapter {
	t.Helper()
	req := ChapterRequest{Title: ptr(title), IsPublished: ptr(true), IsFree: ptr(free)}
	if maxViews > 0 {
		req.MaxViews = ptr(maxViews)
	}
	chapter, err := e.chapters.Create(context.Background(), teacher, courseID, req)
	require.NoError(t, err)
	return chapter
}

func ptr[T any](v T) *T { return &v }
