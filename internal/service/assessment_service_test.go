package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResultCache struct {
	mu      sync.Mutex
	results map[string]repository.ResultRecord
	puts    int
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{results: make(map[string]repository.ResultRecord)}
}

func (f *fakeResultCache) Put(_ context.Context, rec *repository.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.results[string(rec.Kind)+":"+rec.ID] = *rec
	return nil
}

func (f *fakeResultCache) Get(_ context.Context, kind model.ContentType, resultID string) (*repository.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.results[string(kind)+":"+resultID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &rec, nil
}

func (f *fakeResultCache) SetTTL(time.Duration) {}

type quizFixture struct {
	teacher *util.Claims
	student *util.Claims
	course  *model.Course
	quiz    *repository.Assessment
}

func setupQuiz(t *testing.T, env *testEnv, maxAttempts int, published bool) quizFixture {
	t.Helper()
	ctx := context.Background()
	f := quizFixture{
		teacher: env.createUser(t, model.Teacher, 0),
		student: env.createUser(t, model.Student, 0),
	}
	f.course = env.createCourse(t, f.teacher, 20, true)
	_, err := env.courses.Grant(ctx, f.student.UserID, f.course.ID)
	require.NoError(t, err)

	f.quiz, err = env.assessments.Create(ctx, f.teacher, model.ContentQuiz, f.course.ID, AssessmentRequest{
		Title:       ptr("单元测验"),
		IsPublished: ptr(published),
		MaxAttempts: ptr(maxAttempts),
	})
	require.NoError(t, err)

	for _, req := range []QuestionRequest{
		{Type: model.MultipleChoice, Text: "2+2", Options: []string{"3", "4"}, CorrectAnswer: "1", Points: ptr(2)},
		{Type: model.TrueFalse, Text: "地球是圆的", CorrectAnswer: "true"},
	} {
		_, err := env.assessments.AddQuestion(ctx, f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID, req)
		require.NoError(t, err)
	}
	return f
}

func TestAddQuestionRejectsInvalidKey(t *testing.T) {
	env := newTestEnv(t, nil)
	f := setupQuiz(t, env, 0, true)

	_, err := env.assessments.AddQuestion(context.Background(), f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID, QuestionRequest{
		Type: model.MultipleChoice, Text: "越界", Options: []string{"A"}, CorrectAnswer: "5",
	})
	assert.ErrorIs(t, err, util.ErrInvalidAnswerKey)

	_, err = env.assessments.AddQuestion(context.Background(), f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, QuestionRequest{
		Type: model.ShortAnswer, Text: "学生不能出题", CorrectAnswer: "x",
	})
	assert.ErrorIs(t, err, util.ErrForbidden)
}

func TestStudentViewHidesAnswers(t *testing.T) {
	env := newTestEnv(t, nil)
	f := setupQuiz(t, env, 2, true)

	view, err := env.assessments.GetForStudent(context.Background(), f.student, model.ContentQuiz, f.course.ID, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, 3, view.TotalPoints)
	require.NotNil(t, view.AttemptsLeft)
	assert.EqualValues(t, 2, *view.AttemptsLeft)
	assert.Equal(t, []string{"3", "4"}, view.Questions[0].Options)
}

func TestSubmitGradesAndLimitsAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	f := setupQuiz(t, env, 1, true)

	managed, err := env.assessments.GetManaged(ctx, f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID)
	require.NoError(t, err)
	answers := map[string]string{
		managed.Questions[0].ID: "4",
		managed.Questions[1].ID: "false",
	}

	rec, err := env.assessments.Submit(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, SubmitRequest{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Score)
	assert.Equal(t, 3, rec.TotalPoints)
	assert.Equal(t, 1, rec.Attempt)
	assert.InDelta(t, 66.67, rec.Percentage, 0.01)

	_, err = env.assessments.Submit(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, SubmitRequest{Answers: answers})
	assert.ErrorIs(t, err, util.ErrAttemptsExhausted)

	mine, err := env.assessments.ListMyResults(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := env.assessments.ListAllResults(ctx, f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := env.assessments.GetResult(ctx, f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Cached)
	assert.Equal(t, rec.ID, got.ID)
}

func TestSubmitRequiresPublishedAndPurchased(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	f := setupQuiz(t, env, 0, false)

	_, err := env.assessments.Submit(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, SubmitRequest{Answers: map[string]string{}})
	assert.ErrorIs(t, err, util.ErrNotPublished)

	_, err = env.assessments.Update(ctx, f.teacher, model.ContentQuiz, f.course.ID, f.quiz.ID, AssessmentRequest{IsPublished: ptr(true)})
	require.NoError(t, err)

	outsider := env.createUser(t, model.Student, 0)
	_, err = env.assessments.Submit(ctx, outsider, model.ContentQuiz, f.course.ID, f.quiz.ID, SubmitRequest{Answers: map[string]string{}})
	assert.ErrorIs(t, err, util.ErrNoCourseAccess)

	_, err = env.assessments.Submit(ctx, f.student, model.ContentHomework, f.course.ID, f.quiz.ID, SubmitRequest{Answers: map[string]string{}})
	assert.ErrorIs(t, err, util.ErrHomeworkNotFound)
}

func TestGetResultFallsBackToCache(t *testing.T) {
	cache := newFakeResultCache()
	env := newTestEnv(t, cache)
	ctx := context.Background()
	f := setupQuiz(t, env, 0, true)
	other := env.createUser(t, model.Student, 0)

	rec, err := env.assessments.Submit(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, SubmitRequest{Answers: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	_, err = env.assessments.GetResult(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, "missing")
	assert.ErrorIs(t, err, util.ErrResultNotFound, "not-found must not consult the cache")

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	got, err := env.assessments.GetResult(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, rec.Score, got.Score)

	_, err = env.assessments.GetResult(ctx, other, model.ContentQuiz, f.course.ID, f.quiz.ID, rec.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = env.assessments.GetResult(ctx, f.student, model.ContentQuiz, f.course.ID, "another-quiz", rec.ID)
	assert.ErrorIs(t, err, util.ErrResultNotFound)

	_, err = env.assessments.GetResult(ctx, f.student, model.ContentQuiz, f.course.ID, f.quiz.ID, "uncached")
	assert.Error(t, err)
}

func TestZeroPointQuestionKeepsAuthoredPoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)
	_, err := env.courses.Grant(ctx, student.UserID, course.ID)
	require.NoError(t, err)

	quiz, err := env.assessments.Create(ctx, teacher, model.ContentQuiz, course.ID, AssessmentRequest{
		Title:       ptr("热身"),
		IsPublished: ptr(true),
	})
	require.NoError(t, err)

	zero, err := env.assessments.AddQuestion(ctx, teacher, model.ContentQuiz, course.ID, quiz.ID, QuestionRequest{
		Type: model.ShortAnswer, Text: "不计分", CorrectAnswer: "ok", Points: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, zero.Points)

	managed, err := env.assessments.GetManaged(ctx, teacher, model.ContentQuiz, course.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, managed.Questions, 1)
	assert.Equal(t, 0, managed.Questions[0].Points, "stored value must not fall back to a column default")

	rec, err := env.assessments.Submit(ctx, student, model.ContentQuiz, course.ID, quiz.ID, SubmitRequest{
		Answers: map[string]string{zero.ID: "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Score)
	assert.Equal(t, 0, rec.TotalPoints)
	assert.Equal(t, 0.0, rec.Percentage)

	// 更新时不传分值保持原值
	updated, err := env.assessments.UpdateQuestion(ctx, teacher, model.ContentQuiz, course.ID, quiz.ID, zero.ID, QuestionRequest{
		Type: model.ShortAnswer, Text: "仍不计分", CorrectAnswer: "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Points)

	plain, err := env.assessments.AddQuestion(ctx, teacher, model.ContentQuiz, course.ID, quiz.ID, QuestionRequest{
		Type: model.TrueFalse, Text: "默认分值", CorrectAnswer: "true",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, plain.Points)
}
