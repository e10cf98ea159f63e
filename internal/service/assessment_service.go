package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssessmentService 测验与作业共用的业务逻辑，kind 区分两者
type AssessmentService struct {
	Repo    *repository.AssessmentRepository
	Courses *CourseService
	Access  *AccessService
	Cache   ResultCache
}

func NewAssessmentService(repo *repository.AssessmentRepository, courses *CourseService, access *AccessService, cache ResultCache) *AssessmentService {
	if cache == nil {
		cache = NoopResultCache{}
	}
	return &AssessmentService{Repo: repo, Courses: courses, Access: access, Cache: cache}
}

func notFound(kind model.ContentType) error {
	if kind == model.ContentHomework {
		return util.ErrHomeworkNotFound
	}
	return util.ErrQuizNotFound
}

func (s *AssessmentService) find(ctx context.Context, kind model.ContentType, courseID, id string) (*repository.Assessment, error) {
	a, err := s.Repo.Find(ctx, kind, courseID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(kind)
		}
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) findManaged(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) (*repository.Assessment, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.find(ctx, kind, courseID, id)
}

type AssessmentRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
	TimeLimit   *int    `json:"timeLimit" binding:"omitempty,min=0"`
	MaxAttempts *int    `json:"maxAttempts" binding:"omitempty,min=0"`
}

func (r AssessmentRequest) apply(a *repository.Assessment) {
	if r.Title != nil {
		a.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		a.Description = *r.Description
	}
	if r.IsPublished != nil {
		a.IsPublished = *r.IsPublished
	}
	if r.TimeLimit != nil && a.Kind == model.ContentQuiz {
		a.TimeLimit = *r.TimeLimit
	}
	if r.MaxAttempts != nil {
		a.MaxAttempts = *r.MaxAttempts
	}
}

func (s *AssessmentService) Create(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID string, req AssessmentRequest) (*repository.Assessment, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	a := &repository.Assessment{Kind: kind}
	a.CourseID = courseID
	req.apply(a)

	err := s.Courses.Courses.AppendContent(ctx, courseID, func(tx *gorm.DB, position int) error {
		a.Position = position
		return s.Repo.WithTx(tx).Create(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	return a, nil
}

func (s *AssessmentService) Update(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string, req AssessmentRequest) (*repository.Assessment, error) {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	req.apply(a)
	if a.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) Delete(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) error {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, kind, a.ID)
}

func (s *AssessmentService) List(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID string) ([]repository.Assessment, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, kind, courseID, false)
}

// ManagedAssessment 教师视角，题目包含标准答案
type ManagedAssessment struct {
	*repository.Assessment
	Questions []model.Question `json:"questions"`
}

func (s *AssessmentService) GetManaged(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) (*ManagedAssessment, error) {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.Repo.ListQuestions(ctx, kind, a.ID)
	if err != nil {
		return nil, err
	}
	return &ManagedAssessment{Assessment: a, Questions: questions}, nil
}

type QuestionRequest struct {
	Type          model.QuestionType `json:"type" binding:"required,oneof=multiple_choice true_false short_answer"`
	Text          string             `json:"text" binding:"required"`
	ImageURL      string             `json:"imageUrl"`
	Options       []string           `json:"options"`
	CorrectAnswer string             `json:"correctAnswer" binding:"required"`
	Points        *int               `json:"points" binding:"omitempty,min=0"`
	Position      *int               `json:"position" binding:"omitempty,min=1"`
}

// buildQuestion 规范化并校验标准答案，无效时返回 ErrInvalidAnswerKey
func (r QuestionRequest) buildQuestion(q *model.Question) error {
	q.Type = r.Type
	q.Text = strings.TrimSpace(r.Text)
	q.ImageURL = r.ImageURL
	q.CorrectAnswer = strings.TrimSpace(r.CorrectAnswer)
	q.Options = nil
	if r.Type == model.MultipleChoice {
		opts := make([]string, 0, len(r.Options))
		for _, o := range r.Options {
			opts = append(opts, strings.TrimSpace(o))
		}
		q.Options = opts
	}
	if r.Points != nil {
		q.Points = *r.Points
	}
	if r.Position != nil {
		q.Position = *r.Position
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", util.ErrValidation)
	}

	key, err := DecodeAnswerKey(q)
	if err != nil {
		return err
	}
	q.CorrectAnswer = EncodeAnswerKey(key)
	return nil
}

func (s *AssessmentService) AddQuestion(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string, req QuestionRequest) (*model.Question, error) {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}

	// 未指定分值时默认 1 分，显式传 0 保留为 0 分
	q := &model.Question{ParentType: kind, ParentID: a.ID, Points: 1}
	if err := req.buildQuestion(q); err != nil {
		return nil, err
	}
	if req.Position == nil {
		if q.Position, err = s.Repo.NextQuestionPosition(ctx, kind, a.ID); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) findQuestion(ctx context.Context, kind model.ContentType, parentID, questionID string) (*model.Question, error) {
	q, err := s.Repo.FindQuestion(ctx, kind, parentID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) UpdateQuestion(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id, questionID string, req QuestionRequest) (*model.Question, error) {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	q, err := s.findQuestion(ctx, kind, a.ID, questionID)
	if err != nil {
		return nil, err
	}
	if err := req.buildQuestion(q); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) DeleteQuestion(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id, questionID string) error {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return err
	}
	q, err := s.findQuestion(ctx, kind, a.ID, questionID)
	if err != nil {
		return err
	}
	return s.Repo.DeleteQuestion(ctx, q.ID)
}

// PublicQuestion 学生作答时看到的题目，不含标准答案
type PublicQuestion struct {
	ID       string             `json:"id"`
	Type     model.QuestionType `json:"type"`
	Text     string             `json:"text"`
	ImageURL string             `json:"imageUrl,omitempty"`
	Options  []string           `json:"options,omitempty"`
	Points   int                `json:"points"`
	Position int                `json:"position"`
}

// StudentAssessment 学生视角的测验或作业
type StudentAssessment struct {
	*repository.Assessment
	Navigation
	Questions    []PublicQuestion `json:"questions"`
	TotalPoints  int              `json:"totalPoints"`
	AttemptsUsed int64            `json:"attemptsUsed"`
	// AttemptsLeft 为 nil 表示不限次数
	AttemptsLeft *int64 `json:"attemptsLeft"`
}

// loadForStudent 校验发布状态与课程权限，管理者不受限制
func (s *AssessmentService) loadForStudent(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) (*model.Course, *repository.Assessment, error) {
	course, err := s.Courses.FindVisible(ctx, actor, courseID)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.find(ctx, kind, courseID, id)
	if err != nil {
		return nil, nil, err
	}
	if CanManage(actor, course) {
		return course, a, nil
	}
	if !a.IsPublished {
		return nil, nil, util.ErrNotPublished
	}
	ok, err := s.Access.HasAccess(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, util.ErrNoCourseAccess
	}
	return course, a, nil
}

func (s *AssessmentService) GetForStudent(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) (*StudentAssessment, error) {
	course, a, err := s.loadForStudent(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.Repo.ListQuestions(ctx, kind, a.ID)
	if err != nil {
		return nil, err
	}
	used, err := s.Repo.CountAttempts(ctx, kind, actor.UserID, a.ID)
	if err != nil {
		return nil, err
	}
	seq, err := s.Courses.Sequence(ctx, course, !CanManage(actor, course))
	if err != nil {
		return nil, err
	}

	out := &StudentAssessment{
		Assessment:   a,
		Navigation:   seq.Navigation(kind, a.ID),
		Questions:    make([]PublicQuestion, 0, len(questions)),
		AttemptsUsed: used,
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, PublicQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Text:     q.Text,
			ImageURL: q.ImageURL,
			Options:  q.Options,
			Points:   q.Points,
			Position: q.Position,
		})
		out.TotalPoints += q.Points
	}
	if a.MaxAttempts > 0 {
		left := int64(a.MaxAttempts) - used
		if left < 0 {
			left = 0
		}
		out.AttemptsLeft = &left
	}
	return out, nil
}

type SubmitRequest struct {
	// Answers 题目 ID 到原始答案的映射，未作答的题目视为空答案
	Answers map[string]string `json:"answers" binding:"required"`
}

// Submit 评分并保存不可变的成绩快照，随后尽力写入缓存
func (s *AssessmentService) Submit(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string, req SubmitRequest) (rec *repository.ResultRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "assessment.Submit",
		attribute.String("assessment.kind", string(kind)),
		attribute.String("assessment.id", id),
		attribute.Int64("user.id", int64(actor.UserID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	_, a, err := s.loadForStudent(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}

	used, err := s.Repo.CountAttempts(ctx, kind, actor.UserID, a.ID)
	if err != nil {
		return nil, err
	}
	if a.MaxAttempts > 0 && used >= int64(a.MaxAttempts) {
		return nil, util.ErrAttemptsExhausted
	}

	questions, err := s.Repo.ListQuestions(ctx, kind, a.ID)
	if err != nil {
		return nil, err
	}
	outcome := GradeSubmission(questions, req.Answers)

	rec = &repository.ResultRecord{
		ResultBase: model.ResultBase{
			UserID:      actor.UserID,
			CourseID:    a.CourseID,
			Score:       outcome.Score,
			TotalPoints: outcome.TotalPoints,
			Percentage:  outcome.Percentage,
			Attempt:     int(used) + 1,
			Evaluations: outcome.Evaluations,
		},
		Kind:     kind,
		ParentID: a.ID,
	}
	if err := s.Repo.CreateResult(ctx, rec); err != nil {
		return nil, fmt.Errorf("save %s result: %w", kind, err)
	}

	monitoring.ObserveSubmission(string(kind), outcome.Percentage)
	span.SetAttributes(attribute.Float64("result.percentage", outcome.Percentage))

	if err := s.Cache.Put(ctx, rec); err != nil {
		logger.Log.Warn("cache result failed", zap.String("resultId", rec.ID), zap.Error(err))
	}
	return rec, nil
}

// GetResult 优先读取数据库，数据库读取失败（非记录不存在）时回退到缓存副本
func (s *AssessmentService) GetResult(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id, resultID string) (*repository.ResultRecord, error) {
	rec, err := s.resultFromDB(ctx, actor, kind, courseID, id, resultID)
	if err == nil {
		return rec, nil
	}
	if isDomainError(err) {
		return nil, err
	}

	cached, cacheErr := s.Cache.Get(ctx, kind, resultID)
	if cacheErr != nil {
		if !errors.Is(cacheErr, ErrCacheMiss) {
			logger.Log.Warn("read cached result failed", zap.String("resultId", resultID), zap.Error(cacheErr))
		}
		return nil, err
	}
	if cached.CourseID != courseID || cached.ParentID != id {
		return nil, util.ErrResultNotFound
	}
	if cached.UserID != actor.UserID && actor.Role != model.Admin {
		return nil, util.ErrForbidden
	}

	logger.Log.Warn("serving cached result", zap.String("resultId", resultID), zap.Error(err))
	cached.Cached = true
	return cached, nil
}

func (s *AssessmentService) resultFromDB(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id, resultID string) (*repository.ResultRecord, error) {
	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	a, err := s.find(ctx, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.Repo.FindResult(ctx, kind, a.ID, resultID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrResultNotFound
		}
		return nil, err
	}
	if rec.UserID != actor.UserID && !CanManage(actor, course) {
		return nil, util.ErrForbidden
	}
	return rec, nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		util.ErrCourseNotFound,
		util.ErrQuizNotFound,
		util.ErrHomeworkNotFound,
		util.ErrResultNotFound,
		util.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ListMyResults 当前用户的历次作答
func (s *AssessmentService) ListMyResults(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) ([]repository.ResultRecord, error) {
	if _, err := s.Courses.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	a, err := s.find(ctx, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	results, err := s.Repo.ListResults(ctx, kind, a.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []repository.ResultRecord{}
	}
	return results, nil
}

// ListAllResults 教师查看所有学生的成绩
func (s *AssessmentService) ListAllResults(ctx context.Context, actor *util.Claims, kind model.ContentType, courseID, id string) ([]repository.ResultRecord, error) {
	a, err := s.findManaged(ctx, actor, kind, courseID, id)
	if err != nil {
		return nil, err
	}
	results, err := s.Repo.ListResults(ctx, kind, a.ID, 0)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []repository.ResultRecord{}
	}
	return results, nil
}
