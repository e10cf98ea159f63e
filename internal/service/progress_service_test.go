package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkCompleteEnforcesViewLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 10, true)
	chapter := env.createChapter(t, teacher, course.ID, "第一章", 2, false)
	_, err := env.courses.Grant(ctx, student.UserID, course.ID)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		state, err := env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted)
		assert.EqualValues(t, i, state.ViewCount)
	}

	_, err = env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrViewLimitReached)

	var views int64
	require.NoError(t, env.db.Model(&model.ChapterView{}).Where("chapter_id = ?", chapter.ID).Count(&views).Error)
	assert.EqualValues(t, 2, views, "rejected completion must not record a view")
}

func TestMarkCompleteUnlimited(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)
	chapter := env.createChapter(t, teacher, course.ID, "第一章", 0, true)

	for i := 0; i < 5; i++ {
		state, err := env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
		require.NoError(t, err)
		assert.False(t, state.HasExceededViews)
		assert.Nil(t, state.MaxViews)
	}

	var rows int64
	require.NoError(t, env.db.Model(&model.UserProgress{}).Where("user_id = ?", student.UserID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestMarkCompleteRequiresPurchase(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 10, true)
	paid := env.createChapter(t, teacher, course.ID, "付费章节", 0, false)
	free := env.createChapter(t, teacher, course.ID, "试看章节", 0, true)

	_, err := env.progress.MarkComplete(ctx, student, course.ID, paid.ID)
	assert.ErrorIs(t, err, util.ErrNoCourseAccess)

	_, err = env.progress.MarkComplete(ctx, student, course.ID, free.ID)
	assert.NoError(t, err)

	_, err = env.progress.MarkComplete(ctx, student, "missing-course", paid.ID)
	assert.ErrorIs(t, err, util.ErrChapterNotFound)

	_, err = env.progress.MarkComplete(ctx, student, course.ID, "missing-chapter")
	assert.ErrorIs(t, err, util.ErrChapterNotFound)
}

func TestResetProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)
	chapter := env.createChapter(t, teacher, course.ID, "第一章", 3, true)

	err := env.progress.Reset(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)

	_, err = env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)
	require.NoError(t, env.progress.Reset(ctx, student, course.ID, chapter.ID))
	assert.ErrorIs(t, env.progress.Reset(ctx, student, course.ID, chapter.ID), util.ErrProgressNotFound)

	// 重置不会退还观看次数
	state, err := env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, state.ViewCount)
	assert.True(t, state.IsCompleted)
}

func TestOpenChapterClearsCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)
	first := env.createChapter(t, teacher, course.ID, "第一章", 1, true)
	second := env.createChapter(t, teacher, course.ID, "第二章", 0, true)

	_, err := env.progress.MarkComplete(ctx, student, course.ID, first.ID)
	require.NoError(t, err)

	detail, err := env.progress.OpenChapter(ctx, student, course.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsCompleted)
	assert.True(t, detail.HasExceededViews)
	assert.EqualValues(t, 1, detail.ViewCount)
	assert.Nil(t, detail.PreviousID)
	require.NotNil(t, detail.NextID)
	assert.Equal(t, second.ID, *detail.NextID)

	completed, err := env.progress.Progress.IsCompleted(ctx, student.UserID, first.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	// 没有进度时打开章节也不报错
	_, err = env.progress.OpenChapter(ctx, student, course.ID, second.ID)
	assert.NoError(t, err)
}

func TestCourseProgressPercentage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)

	empty, err := env.progress.CourseProgress(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Percentage)

	chapter := env.createChapter(t, teacher, course.ID, "第一章", 0, true)
	env.createChapter(t, teacher, course.ID, "第二章", 0, true)
	_, err = env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)

	p, err := env.progress.CourseProgress(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalItems)
	assert.Equal(t, 1, p.CompletedItems)
	assert.InDelta(t, 50.0, p.Percentage, 0.001)
	assert.Equal(t, []string{"chapter:" + chapter.ID}, p.CompletedIDs)
}

func TestUnpublishedCourseHidesChapterProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, false)
	chapter := env.createChapter(t, teacher, course.ID, "试看章节", 3, true)

	_, err := env.chapters.Detail(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrChapterNotFound)

	err = env.progress.Reset(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrChapterNotFound)

	var views int64
	require.NoError(t, env.db.Model(&model.ChapterView{}).Where("chapter_id = ?", chapter.ID).Count(&views).Error)
	assert.Zero(t, views)

	// 课程作者仍可预览并记录进度
	state, err := env.progress.MarkComplete(ctx, teacher, course.ID, chapter.ID)
	require.NoError(t, err)
	assert.True(t, state.IsCompleted)
}

func TestResetHidesUnpublishedChapter(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 0, true)
	chapter := env.createChapter(t, teacher, course.ID, "草稿", 0, true)

	_, err := env.progress.MarkComplete(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)
	_, err = env.chapters.Update(ctx, teacher, course.ID, chapter.ID, ChapterRequest{IsPublished: ptr(false)})
	require.NoError(t, err)

	err = env.progress.Reset(ctx, student, course.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrChapterNotFound)
}

func TestLockedChapterWithoutPurchase(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	teacher := env.createUser(t, model.Teacher, 0)
	student := env.createUser(t, model.Student, 0)
	course := env.createCourse(t, teacher, 25, true)
	chapter := env.createChapter(t, teacher, course.ID, "付费章节", 0, false)

	_, err := env.chapters.Update(ctx, teacher, course.ID, chapter.ID, ChapterRequest{VideoURL: ptr("/uploads/videos/lesson.mp4")})
	require.NoError(t, err)
	attachment := &model.Attachment{ChapterID: chapter.ID, Name: "讲义.pdf", URL: "/uploads/attachments/notes.pdf"}
	require.NoError(t, env.db.Create(attachment).Error)

	ok, err := env.courses.CheckAccess(ctx, student, course.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	detail, err := env.chapters.Detail(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsLocked)
	assert.False(t, detail.HasAccess)
	assert.Empty(t, detail.VideoURL)
	assert.Empty(t, detail.Attachments)

	_, err = env.courses.Grant(ctx, student.UserID, course.ID)
	require.NoError(t, err)
	detail, err = env.chapters.Detail(ctx, student, course.ID, chapter.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsLocked)
	assert.Equal(t, "/uploads/videos/lesson.mp4", detail.VideoURL)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "讲义.pdf", detail.Attachments[0].Name)
}
