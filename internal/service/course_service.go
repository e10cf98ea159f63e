package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	Courses   *repository.CourseRepository
	Purchases *repository.PurchaseRepository
	Access    *AccessService
}

func NewCourseService(courses *repository.CourseRepository, purchases *repository.PurchaseRepository, access *AccessService) *CourseService {
	return &CourseService{Courses: courses, Purchases: purchases, Access: access}
}

func (s *CourseService) FindCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// FindManaged 加载课程并校验调用者是否可管理
func (s *CourseService) FindManaged(ctx context.Context, actor *util.Claims, courseID string) (*model.Course, error) {
	course, err := s.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !CanManage(actor, course) {
		return nil, util.ErrForbidden
	}
	return course, nil
}

// FindVisible 学生只能看到已发布的课程
func (s *CourseService) FindVisible(ctx context.Context, actor *util.Claims, courseID string) (*model.Course, error) {
	course, err := s.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && !CanManage(actor, course) {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

type CourseRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	Grade       *string  `json:"grade"`
	Subject     *string  `json:"subject"`
	Semester    *string  `json:"semester"`
	IsPublished *bool    `json:"isPublished"`
	TeacherID   *uint    `json:"teacherId"` // 仅管理员可指定
}

func (r CourseRequest) apply(course *model.Course) {
	if r.Title != nil {
		course.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		course.Description = *r.Description
	}
	if r.ImageURL != nil {
		course.ImageURL = *r.ImageURL
	}
	if r.Price != nil {
		course.Price = *r.Price
	}
	if r.Grade != nil {
		course.Grade = *r.Grade
	}
	if r.Subject != nil {
		course.Subject = *r.Subject
	}
	if r.Semester != nil {
		course.Semester = *r.Semester
	}
	if r.IsPublished != nil {
		course.IsPublished = *r.IsPublished
	}
}

func (s *CourseService) Create(ctx context.Context, actor *util.Claims, req CourseRequest) (*model.Course, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	course := &model.Course{TeacherID: actor.UserID}
	req.apply(course)
	if req.TeacherID != nil && actor.Role == model.Admin {
		course.TeacherID = *req.TeacherID
	}

	if err := s.Courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor *util.Claims, courseID string, req CourseRequest) (*model.Course, error) {
	course, err := s.FindManaged(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	req.apply(course)
	if req.TeacherID != nil && actor.Role == model.Admin {
		course.TeacherID = *req.TeacherID
	}
	if strings.TrimSpace(course.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	if err := s.Courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(ctx context.Context, actor *util.Claims, courseID string) error {
	if _, err := s.FindManaged(ctx, actor, courseID); err != nil {
		return err
	}
	return s.Courses.Delete(ctx, courseID)
}

// ListCatalogue 已发布课程目录
func (s *CourseService) ListCatalogue(ctx context.Context, filter repository.CourseFilter, page, limit int) ([]model.Course, int64, error) {
	filter.PublishedOnly = true
	filter.TeacherID = 0
	return s.Courses.List(ctx, filter, page, limit)
}

// ListManaged 教师只看到自己的课程，管理员看到全部
func (s *CourseService) ListManaged(ctx context.Context, actor *util.Claims, filter repository.CourseFilter, page, limit int) ([]model.Course, int64, error) {
	filter.PublishedOnly = false
	if actor.Role != model.Admin {
		filter.TeacherID = actor.UserID
	}
	return s.Courses.List(ctx, filter, page, limit)
}

// CourseDetail 课程详情附带当前用户的访问状态
type CourseDetail struct {
	*model.Course
	HasAccess bool `json:"hasAccess"`
	CanManage bool `json:"canManage"`
}

func (s *CourseService) Detail(ctx context.Context, actor *util.Claims, courseID string) (*CourseDetail, error) {
	course, err := s.FindVisible(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	hasAccess, err := s.Access.CanViewCourse(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: course, HasAccess: hasAccess, CanManage: CanManage(actor, course)}, nil
}

// CheckAccess 仅以购买记录判断
func (s *CourseService) CheckAccess(ctx context.Context, actor *util.Claims, courseID string) (bool, error) {
	course, err := s.FindVisible(ctx, actor, courseID)
	if err != nil {
		return false, err
	}
	return s.Access.CanViewCourse(ctx, actor, course)
}

// Sequence 课程的混合内容序列，学生只看到已发布内容
func (s *CourseService) Sequence(ctx context.Context, course *model.Course, publishedOnly bool) (Sequence, error) {
	contents, err := s.Courses.LoadContents(ctx, course.ID, publishedOnly)
	if err != nil {
		return nil, err
	}
	return BuildSequence(contents.Chapters, contents.Quizzes, contents.Homeworks), nil
}

func (s *CourseService) Contents(ctx context.Context, actor *util.Claims, courseID string) (Sequence, error) {
	course, err := s.FindVisible(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	return s.Sequence(ctx, course, !CanManage(actor, course))
}

// Purchase 使用账户余额购买课程
func (s *CourseService) Purchase(ctx context.Context, actor *util.Claims, courseID string) (*model.Purchase, error) {
	course, err := s.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrNotPublished
	}

	purchase, err := s.Purchases.Purchase(ctx, actor.UserID, course)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("course purchased",
		zap.Uint("userId", actor.UserID),
		zap.String("courseId", course.ID),
		zap.Float64("price", purchase.PricePaid))
	return purchase, nil
}

// Grant 管理员为用户开通课程
func (s *CourseService) Grant(ctx context.Context, userID uint, courseID string) (*model.Purchase, error) {
	if _, err := s.FindCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.Purchases.Grant(ctx, userID, courseID)
}

// Reorder 批量调整内容位置，调整后同一课程内的位置必须唯一
func (s *CourseService) Reorder(ctx context.Context, actor *util.Claims, courseID string, updates []repository.PositionUpdate) (Sequence, error) {
	course, err := s.FindManaged(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: empty reorder list", util.ErrValidation)
	}

	current, err := s.Sequence(ctx, course, false)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]int, len(current))
	for _, item := range current {
		positions[string(item.Type)+":"+item.ID] = item.Position
	}
	seen := make(map[string]bool, len(updates))
	for _, u := range updates {
		key := string(u.Type) + ":" + u.ID
		if _, ok := positions[key]; !ok {
			return nil, fmt.Errorf("%w: %s %s is not part of this course", util.ErrInvalidPosition, u.Type, u.ID)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s %s listed twice", util.ErrInvalidPosition, u.Type, u.ID)
		}
		seen[key] = true
		positions[key] = u.Position
	}

	used := make(map[int]bool, len(positions))
	for _, p := range positions {
		if used[p] {
			return nil, fmt.Errorf("%w: duplicate position %d", util.ErrInvalidPosition, p)
		}
		used[p] = true
	}

	if err := s.Courses.Reorder(ctx, courseID, updates); err != nil {
		return nil, err
	}
	return s.Sequence(ctx, course, false)
}

func (s *CourseService) Students(ctx context.Context, actor *util.Claims, courseID string, page, limit int) ([]repository.EnrolledStudent, int64, error) {
	if _, err := s.FindManaged(ctx, actor, courseID); err != nil {
		return nil, 0, err
	}
	return s.Purchases.ListStudents(ctx, courseID, page, limit)
}
