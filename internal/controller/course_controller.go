package controller

import (
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
	PageSize      int
}

func NewCourseController(courseService *service.CourseService, pageSize int) *CourseController {
	return &CourseController{CourseService: courseService, PageSize: pageSize}
}

func courseFilter(ctx *gin.Context) repository.CourseFilter {
	return repository.CourseFilter{
		Grade:    ctx.Query("grade"),
		Subject:  ctx.Query("subject"),
		Semester: ctx.Query("semester"),
		Search:   ctx.Query("search"),
	}
}

// ListCatalogue godoc
// @Summary 课程目录
// @Description 已发布课程，可按年级、科目、学期筛选
// @Tags 课程
// @Produce  json
// @Param   grade query string false "年级"
// @Param   subject query string false "科目"
// @Param   semester query string false "学期"
// @Param   search query string false "标题关键词"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.Course}}
// @Router /api/courses [get]
func (c *CourseController) ListCatalogue(ctx *gin.Context) {
	page, limit := util.Pagination(ctx, c.PageSize)
	courses, total, err := c.CourseService.ListCatalogue(ctx.Request.Context(), courseFilter(ctx), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{courseId} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	detail, err := c.CourseService.Detail(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// CheckAccess godoc
// @Summary 检查课程访问权限
// @Description 以购买记录判断，未购买返回 hasAccess=false
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/courses/{courseId}/access [get]
func (c *CourseController) CheckAccess(ctx *gin.Context) {
	ok, err := c.CourseService.CheckAccess(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"hasAccess": ok})
}

// Purchase godoc
// @Summary 购买课程
// @Description 从账户余额扣款
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 201 {object} util.Response{data=model.Purchase}
// @Failure 403 {object} util.Response "余额不足"
// @Failure 409 {object} util.Response "已购买"
// @Router /api/courses/{courseId}/purchase [post]
func (c *CourseController) Purchase(ctx *gin.Context) {
	purchase, err := c.CourseService.Purchase(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, purchase)
}

// Contents godoc
// @Summary 课程内容序列
// @Description 章节、测验、作业按 position 合并排序
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]service.SequenceItem}
// @Router /api/courses/{courseId}/contents [get]
func (c *CourseController) Contents(ctx *gin.Context) {
	seq, err := c.CourseService.Contents(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, seq)
}

// ListManaged godoc
// @Summary 我管理的课程
// @Description 教师返回自己的课程，管理员返回全部
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.Course}}
// @Router /api/teacher/courses [get]
func (c *CourseController) ListManaged(ctx *gin.Context) {
	page, limit := util.Pagination(ctx, c.PageSize)
	courses, total, err := c.CourseService.ListManaged(ctx.Request.Context(), util.GetUserFromContext(ctx), courseFilter(ctx), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.Create(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// GetManaged godoc
// @Summary 获取课程（管理）
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/teacher/courses/{courseId} [get]
func (c *CourseController) GetManaged(ctx *gin.Context) {
	course, err := c.CourseService.FindManaged(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Description 只更新请求中出现的字段
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response "无权限"
// @Router /api/teacher/courses/{courseId} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 课程管理
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 204 "删除成功"
// @Router /api/teacher/courses/{courseId} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.CourseService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

type reorderRequest struct {
	Items []repository.PositionUpdate `json:"items" binding:"required,min=1,dive"`
}

// Reorder godoc
// @Summary 调整内容顺序
// @Description 批量设置章节、测验、作业的位置，调整后位置不能重复
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   body body reorderRequest true "新位置"
// @Success 200 {object} util.Response{data=[]service.SequenceItem}
// @Failure 400 {object} util.Response "位置冲突"
// @Router /api/teacher/courses/{courseId}/reorder [put]
func (c *CourseController) Reorder(ctx *gin.Context) {
	var req reorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	seq, err := c.CourseService.Reorder(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"), req.Items)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, seq)
}

// Students godoc
// @Summary 课程学员
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]repository.EnrolledStudent}}
// @Router /api/teacher/courses/{courseId}/students [get]
func (c *CourseController) Students(ctx *gin.Context) {
	page, limit := util.Pagination(ctx, c.PageSize)
	students, total, err := c.CourseService.Students(ctx.Request.Context(), util.GetUserFromContext(ctx), ctx.Param("courseId"), page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: students, Total: total, Page: page, Limit: limit})
}
