package util

import (
	"errors"
	"lms_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleServiceError 将业务错误映射为 HTTP 状态码，未识别的错误记录日志并返回 500
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUserDisabled),
		errors.Is(err, ErrNoCourseAccess),
		errors.Is(err, ErrViewLimitReached),
		errors.Is(err, ErrAttemptsExhausted),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrNotPublished):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrChapterNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrHomeworkNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrResultNotFound),
		errors.Is(err, ErrProgressNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyPurchased), errors.Is(err, ErrEmailRegistered):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidAnswerKey),
		errors.Is(err, ErrInvalidPosition):
		Error(c, http.StatusBadRequest, err.Error())
	default:
		LogInternalError(c, err)
	}
}
