package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// AccessService 判断用户是否拥有课程的访问权限
type AccessService struct {
	Purchases *repository.PurchaseRepository
}

func NewAccessService(purchases *repository.PurchaseRepository) *AccessService {
	return &AccessService{Purchases: purchases}
}

// HasAccess 以购买记录是否存在为准，不存在时返回 false 而不是错误
func (s *AccessService) HasAccess(ctx context.Context, userID uint, courseID string) (bool, error) {
	return s.Purchases.Exists(ctx, userID, courseID)
}

// CanManage 管理员可管理所有课程，教师只能管理自己的课程
func CanManage(actor *util.Claims, course *model.Course) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case model.Admin:
		return true
	case model.Teacher:
		return course.TeacherID == actor.UserID
	}
	return false
}

// CanViewCourse 课程管理者或已购买的用户
func (s *AccessService) CanViewCourse(ctx context.Context, actor *util.Claims, course *model.Course) (bool, error) {
	if CanManage(actor, course) {
		return true, nil
	}
	return s.HasAccess(ctx, actor.UserID, course.ID)
}

// CanViewChapter 免费章节跳过购买校验
func (s *AccessService) CanViewChapter(ctx context.Context, actor *util.Claims, course *model.Course, chapter *model.Chapter) (bool, error) {
	if chapter.IsFree {
		return true, nil
	}
	return s.CanViewCourse(ctx, actor, course)
}
