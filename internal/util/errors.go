package util

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrUserDisabled        = errors.New("user disabled")
	ErrCourseNotFound      = errors.New("course not found")
	ErrChapterNotFound     = errors.New("chapter not found")
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrHomeworkNotFound    = errors.New("homework not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrResultNotFound      = errors.New("result not found")
	ErrProgressNotFound    = errors.New("progress not found")
	ErrNotPublished        = errors.New("content not published")
	ErrNoCourseAccess      = errors.New("no access to this course")
	ErrViewLimitReached    = errors.New("view limit reached")
	ErrAttemptsExhausted   = errors.New("no attempts left")
	ErrAlreadyPurchased    = errors.New("course already purchased")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAnswerKey    = errors.New("invalid answer key")
	ErrInvalidPosition     = errors.New("invalid content position")
	ErrValidation          = errors.New("validation failed")
)
