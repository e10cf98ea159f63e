package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChapterController struct {
	ChapterService  *service.ChapterService
	ProgressService *service.ProgressService
}

func NewChapterController(chapterService *service.ChapterService, progressService *service.ProgressService) *ChapterController {
	return &ChapterController{ChapterService: chapterService, ProgressService: progressService}
}

// GetChapter godoc
// @Summary 章节详情
// @Description 包含上一项/下一项导航、观看次数和完成状态；未购买的非免费章节不返回视频和附件
// @Tags 章节
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=service.ChapterDetail}
// @Failure 404 {object} util.Response "章节不存在"
// @Router /api/courses/{courseId}/chapters/{chapterId} [get]
func (c *ChapterController) GetChapter(ctx *gin.Context) {
	detail, err := c.ChapterService.Detail(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// OpenChapter godoc
// @Summary 打开章节
// @Description 打开章节会清除该章节已有的完成状态，不消耗观看次数
// @Tags 章节
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=service.ChapterDetail}
// @Router /api/courses/{courseId}/chapters/{chapterId}/open [post]
func (c *ChapterController) OpenChapter(ctx *gin.Context) {
	detail, err := c.ProgressService.OpenChapter(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// ListChapters godoc
// @Summary 章节列表（管理）
// @Tags 章节管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Chapter}
// @Router /api/teacher/courses/{courseId}/chapters [get]
func (c *ChapterController) ListChapters(ctx *gin.Context) {
	chapters, err := c.ChapterService.List(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, chapters)
}

// CreateChapter godoc
// @Summary 创建章节
// @Description 新章节排在课程内容末尾
// @Tags 章节管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   body body service.ChapterRequest true "章节信息"
// @Success 201 {object} util.Response{data=model.Chapter}
// @Router /api/teacher/courses/{courseId}/chapters [post]
func (c *ChapterController) CreateChapter(ctx *gin.Context) {
	var req service.ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	chapter, err := c.ChapterService.Create(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, chapter)
}

// GetManagedChapter godoc
// @Summary 获取章节（管理）
// @Tags 章节管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId} [get]
func (c *ChapterController) GetManagedChapter(ctx *gin.Context) {
	chapter, err := c.ChapterService.Get(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

// UpdateChapter godoc
// @Summary 更新章节
// @Description maxViews 为 0 表示取消观看次数限制
// @Tags 章节管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Param   body body service.ChapterRequest true "章节信息"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId} [put]
func (c *ChapterController) UpdateChapter(ctx *gin.Context) {
	var req service.ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	chapter, err := c.ChapterService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

// DeleteChapter godoc
// @Summary 删除章节
// @Tags 章节管理
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Success 204 "删除成功"
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId} [delete]
func (c *ChapterController) DeleteChapter(ctx *gin.Context) {
	if err := c.ChapterService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// UploadVideo godoc
// @Summary 上传章节视频
// @Description 支持 mp4、webm、mov 等格式，上传后自动探测时长
// @Tags 章节管理
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Param   file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Failure 400 {object} util.Response "文件格式错误"
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId}/video [post]
func (c *ChapterController) UploadVideo(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的视频")
		return
	}
	chapter, err := c.ChapterService.UploadVideo(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), file)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

// AddAttachment godoc
// @Summary 上传章节附件
// @Tags 章节管理
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Param   file formData file true "附件"
// @Param   name formData string false "显示名称"
// @Success 201 {object} util.Response{data=model.Attachment}
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId}/attachments [post]
func (c *ChapterController) AddAttachment(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的文件")
		return
	}
	attachment, err := c.ChapterService.AddAttachment(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), file, ctx.PostForm("name"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, attachment)
}

// DeleteAttachment godoc
// @Summary 删除章节附件
// @Tags 章节管理
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   chapterId path string true "章节ID"
// @Param   attachmentId path string true "附件ID"
// @Success 204 "删除成功"
// @Router /api/teacher/courses/{courseId}/chapters/{chapterId}/attachments/{attachmentId} [delete]
func (c *ChapterController) DeleteAttachment(ctx *gin.Context) {
	if err := c.ChapterService.DeleteAttachment(ctx.Request.Context(), util.GetUserFromContext(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), ctx.Param("attachmentId")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}
