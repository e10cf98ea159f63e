package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// MarkComplete godoc
// @Summary 标记章节完成
// @Description 每次完成消耗一次观看次数，达到上限返回 403
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=service.ProgressState}
// @Failure 403 {object} util.Response "无权限或观看次数已用完"
// @Failure 404 {object} util.Response "章节不存在"
// @Router /api/courses/{courseId}/chapters/{chapterId}/progress [put]
func (c *ProgressController) MarkComplete(ctx *gin.Context) {
	state, err := c.ProgressService.MarkComplete(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// ResetProgress godoc
// @Summary 重置章节进度
// @Tags 学习进度
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 204 "重置成功"
// @Failure 404 {object} util.Response "没有进度记录"
// @Router /api/courses/{courseId}/chapters/{chapterId}/progress [delete]
func (c *ProgressController) ResetProgress(ctx *gin.Context) {
	if err := c.ProgressService.Reset(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// CourseProgress godoc
// @Summary 课程完成度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{courseId}/progress [get]
func (c *ProgressController) CourseProgress(ctx *gin.Context) {
	p, err := c.ProgressService.CourseProgress(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, p)
}
