package service

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseDebitsBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 50)
	course := env.createCourse(t, teacher, 30, true)

	ok, err := env.courses.CheckAccess(ctx, student, course.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	purchase, err := env.courses.Purchase(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, purchase.PricePaid)

	user, err := env.users.FindByID(ctx, student.UserID)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, user.Balance, 0.001)

	txs, total, err := env.users.ListBalanceTransactions(ctx, student.UserID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.BalancePurchase, txs[0].Type)
	assert.InDelta(t, -30.0, txs[0].Amount, 0.001)

	ok, err = env.courses.CheckAccess(ctx, student, course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.courses.Purchase(ctx, student, course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyPurchased)
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 5)
	course := env.createCourse(t, teacher, 30, true)

	_, err := env.courses.Purchase(ctx, student, course.ID)
	assert.ErrorIs(t, err, util.ErrInsufficientBalance)

	user, err := env.users.FindByID(ctx, student.UserID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, user.Balance, 0.001)

	exists, err := env.courses.Purchases.Exists(ctx, student.UserID, course.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnpublishedCourseHiddenFromStudents(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 100)
	course := env.createCourse(t, teacher, 10, false)

	_, err := env.courses.Detail(ctx, student, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = env.courses.Purchase(ctx, student, course.ID)
	assert.ErrorIs(t, err, util.ErrNotPublished)

	detail, err := env.courses.Detail(ctx, teacher, course.ID)
	require.NoError(t, err)
	assert.True(t, detail.CanManage)
	assert.True(t, detail.HasAccess)

	other := env.createUser(t, model.Teacher, 0)
	_, err = env.courses.Update(ctx, other, course.ID, CourseRequest{Title: ptr("改名")})
	assert.ErrorIs(t, err, util.ErrForbidden)

	list, total, err := env.courses.ListCatalogue(ctx, repository.CourseFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestReorderContents(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	course := env.createCourse(t, teacher, 0, true)
	c1 := env.createChapter(t, teacher, course.ID, "第一章", 0, true)
	c2 := env.createChapter(t, teacher, course.ID, "第二章", 0, true)
	quiz, err := env.assessments.Create(ctx, teacher, model.ContentQuiz, course.ID, AssessmentRequest{Title: ptr("测验")})
	require.NoError(t, err)
	assert.Equal(t, 3, quiz.Position)

	seq, err := env.courses.Reorder(ctx, teacher, course.ID, []repository.PositionUpdate{
		{ID: quiz.ID, Type: model.ContentQuiz, Position: 1},
		{ID: c1.ID, Type: model.ContentChapter, Position: 3},
	})
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, quiz.ID, seq[0].ID)
	assert.Equal(t, c2.ID, seq[1].ID)
	assert.Equal(t, c1.ID, seq[2].ID)

	_, err = env.courses.Reorder(ctx, teacher, course.ID, []repository.PositionUpdate{
		{ID: c1.ID, Type: model.ContentChapter, Position: 2},
	})
	assert.ErrorIs(t, err, util.ErrInvalidPosition, "position 2 is still used by the second chapter")

	_, err = env.courses.Reorder(ctx, teacher, course.ID, []repository.PositionUpdate{
		{ID: c1.ID, Type: model.ContentQuiz, Position: 5},
	})
	assert.ErrorIs(t, err, util.ErrInvalidPosition)

	_, err = env.courses.Reorder(ctx, teacher, course.ID, []repository.PositionUpdate{
		{ID: c1.ID, Type: model.ContentChapter, Position: 5},
		{ID: c1.ID, Type: model.ContentChapter, Position: 6},
	})
	assert.ErrorIs(t, err, util.ErrInvalidPosition)
}

func TestGrantSkipsBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 99, true)

	p, err := env.courses.Grant(ctx, student.UserID, course.ID)
	require.NoError(t, err)
	assert.Zero(t, p.PricePaid)

	_, err = env.courses.Grant(ctx, student.UserID, course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyPurchased)

	students, total, err := env.courses.Students(ctx, teacher, course.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, student.UserID, students[0].UserID)
}

func TestDashboards(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 100)
	admin := env.createUser(t, model.Admin, 0)
	course := env.createCourse(t, teacher, 40, true)
	chapter := env.createChapter(t, teacher, course.ID, "第一章", 0, false)

	_, err := env.courses.Purchase(ctx, student, course.ID)
	require.NoError(t, err)
	_, err = env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)

	raw, err := env.dashboard.ForRole(ctx, student)
	require.NoError(t, err)
	sd, ok := raw.(*StudentDashboard)
	require.True(t, ok)
	assert.InDelta(t, 60.0, sd.Balance, 0.001)
	require.Len(t, sd.Courses, 1)
	assert.Equal(t, 100.0, sd.Courses[0].Percentage)

	raw, err = env.dashboard.ForRole(ctx, teacher)
	require.NoError(t, err)
	td := raw.(*TeacherDashboard)
	assert.EqualValues(t, 1, td.TotalStudents)
	assert.Equal(t, 1, td.Courses[0].ChapterCount)

	raw, err = env.dashboard.ForRole(ctx, admin)
	require.NoError(t, err)
	ad := raw.(*AdminDashboard)
	assert.EqualValues(t, 1, ad.CourseCount)
	assert.EqualValues(t, 1, ad.PurchaseCount)
	assert.InDelta(t, 40.0, ad.Revenue, 0.001)
	assert.EqualValues(t, 1, ad.UsersByRole[model.Student])
}

func TestConcurrentCreatesGetDistinctPositions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	course := env.createCourse(t, teacher, 0, true)

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = env.chapters.Create(ctx, teacher, course.ID, ChapterRequest{Title: ptr(fmt.Sprintf("章节 %d", i))})
			} else {
				_, err = env.assessments.Create(ctx, teacher, model.ContentQuiz, course.ID, AssessmentRequest{Title: ptr(fmt.Sprintf("测验 %d", i))})
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seq, err := env.courses.Contents(ctx, teacher, course.ID)
	require.NoError(t, err)
	require.Len(t, seq, n)
	for i, item := range seq {
		assert.Equal(t, i+1, item.Position)
	}
}
