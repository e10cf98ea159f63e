package service

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProgressService struct {
	Progress    *repository.ProgressRepository
	Assessments *repository.AssessmentRepository
	Courses     *CourseService
	Chapters    *ChapterService
	Access      *AccessService
}

func NewProgressService(
	progress *repository.ProgressRepository,
	assessments *repository.AssessmentRepository,
	courses *CourseService,
	chapters *ChapterService,
	access *AccessService,
) *ProgressService {
	return &ProgressService{
		Progress:    progress,
		Assessments: assessments,
		Courses:     courses,
		Chapters:    chapters,
		Access:      access,
	}
}

// ProgressState 完成章节后的状态
type ProgressState struct {
	ChapterID        string `json:"chapterId"`
	IsCompleted      bool   `json:"isCompleted"`
	ViewCount        int64  `json:"viewCount"`
	MaxViews         *int   `json:"maxViews"`
	HasExceededViews bool   `json:"hasExceededViews"`
}

// MarkComplete 标记章节完成。每次成功完成都会消耗一次观看次数，
// 达到上限后返回 ErrViewLimitReached 且不写入任何记录。
func (s *ProgressService) MarkComplete(ctx context.Context, actor *util.Claims, courseID, chapterID string) (state *ProgressState, err error) {
	ctx, span := tracing.StartSpan(ctx, "progress.MarkComplete",
		attribute.String("course.id", courseID),
		attribute.String("chapter.id", chapterID),
		attribute.Int64("user.id", int64(actor.UserID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	course, chapter, err := s.loadChapter(ctx, actor, courseID, chapterID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.Access.CanViewChapter(ctx, actor, course, chapter)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, util.ErrNoCourseAccess
	}

	views, err := s.Progress.RecordCompletion(ctx, actor.UserID, chapter)
	if err != nil {
		if errors.Is(err, util.ErrViewLimitReached) {
			monitoring.ViewLimitRejections.Inc()
			logger.Log.Info("chapter view limit reached",
				zap.Uint("userId", actor.UserID),
				zap.String("chapterId", chapter.ID),
				zap.Int("maxViews", chapter.ViewLimit()))
		}
		return nil, err
	}
	monitoring.ChapterCompletions.Inc()

	state = &ProgressState{
		ChapterID:   chapter.ID,
		IsCompleted: true,
		ViewCount:   views,
		MaxViews:    chapter.MaxViews,
	}
	if limit := chapter.ViewLimit(); limit > 0 {
		state.HasExceededViews = views >= int64(limit)
	}
	return state, nil
}

// loadChapter 对学生隐藏未发布的课程和章节，均按章节不存在处理
func (s *ProgressService) loadChapter(ctx context.Context, actor *util.Claims, courseID, chapterID string) (*model.Course, *model.Chapter, error) {
	course, err := s.Courses.FindVisible(ctx, actor, courseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return nil, nil, util.ErrChapterNotFound
		}
		return nil, nil, err
	}
	chapter, err := s.Chapters.FindChapter(ctx, courseID, chapterID)
	if err != nil {
		return nil, nil, err
	}
	if !chapter.IsPublished && !CanManage(actor, course) {
		return nil, nil, util.ErrChapterNotFound
	}
	return course, chapter, nil
}

// Reset 删除进度记录，没有记录可删时返回 ErrProgressNotFound
func (s *ProgressService) Reset(ctx context.Context, actor *util.Claims, courseID, chapterID string) error {
	_, chapter, err := s.loadChapter(ctx, actor, courseID, chapterID)
	if err != nil {
		return err
	}
	deleted, err := s.Progress.DeleteProgress(ctx, actor.UserID, chapter.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.ErrProgressNotFound
	}
	return nil
}

// OpenChapter 打开章节时先清除已有进度，返回的详情总是未完成状态。
// 打开章节不消耗观看次数。
func (s *ProgressService) OpenChapter(ctx context.Context, actor *util.Claims, courseID, chapterID string) (*ChapterDetail, error) {
	detail, err := s.Chapters.Detail(ctx, actor, courseID, chapterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Progress.DeleteProgress(ctx, actor.UserID, detail.ID); err != nil {
		return nil, err
	}
	detail.IsCompleted = false
	return detail, nil
}

// CourseProgress 课程完成度，按已发布的内容项计算
type CourseProgress struct {
	CourseID       string  `json:"courseId"`
	TotalItems     int     `json:"totalItems"`
	CompletedItems int     `json:"completedItems"`
	Percentage     float64 `json:"percentage"`
	// CompletedIDs 已完成的内容项，键为 "<type>:<id>"
	CompletedIDs []string `json:"completedIds"`
}

func (s *ProgressService) CourseProgress(ctx context.Context, actor *util.Claims, courseID string) (*CourseProgress, error) {
	course, err := s.Courses.FindVisible(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	return s.progressFor(ctx, actor.UserID, course)
}

func (s *ProgressService) progressFor(ctx context.Context, userID uint, course *model.Course) (*CourseProgress, error) {
	seq, err := s.Courses.Sequence(ctx, course, true)
	if err != nil {
		return nil, err
	}

	ids := map[model.ContentType][]string{}
	for _, item := range seq {
		ids[item.Type] = append(ids[item.Type], item.ID)
	}

	chaptersDone, err := s.Progress.CompletedChapterIDs(ctx, userID, ids[model.ContentChapter])
	if err != nil {
		return nil, err
	}
	quizzesDone, err := s.Assessments.AttemptedIDs(ctx, model.ContentQuiz, userID, ids[model.ContentQuiz])
	if err != nil {
		return nil, err
	}
	homeworksDone, err := s.Assessments.AttemptedIDs(ctx, model.ContentHomework, userID, ids[model.ContentHomework])
	if err != nil {
		return nil, err
	}
	done := map[model.ContentType]map[string]bool{
		model.ContentChapter:  chaptersDone,
		model.ContentQuiz:     quizzesDone,
		model.ContentHomework: homeworksDone,
	}

	p := &CourseProgress{CourseID: course.ID, TotalItems: len(seq), CompletedIDs: []string{}}
	for _, item := range seq {
		if done[item.Type][item.ID] {
			p.CompletedItems++
			p.CompletedIDs = append(p.CompletedIDs, string(item.Type)+":"+item.ID)
		}
	}
	if p.TotalItems > 0 {
		p.Percentage = float64(p.CompletedItems) / float64(p.TotalItems) * 100
	}
	return p, nil
}
