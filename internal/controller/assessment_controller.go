package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AssessmentController 测验和作业共用同一套处理函数，按 Kind 区分路由参数
type AssessmentController struct {
	AssessmentService *service.AssessmentService
	Kind              model.ContentType
	param             string
}

func NewAssessmentController(assessmentService *service.AssessmentService, kind model.ContentType) *AssessmentController {
	param := "quizId"
	if kind == model.ContentHomework {
		param = "homeworkId"
	}
	return &AssessmentController{AssessmentService: assessmentService, Kind: kind, param: param}
}

// Param 路由中使用的 ID 参数名
func (c *AssessmentController) Param() string {
	return c.param
}

func (c *AssessmentController) id(ctx *gin.Context) string {
	return ctx.Param(c.param)
}

// GetForStudent godoc
// @Summary 获取测验/作业
// @Description 题目不包含标准答案，返回剩余作答次数与导航
// @Tags 测验与作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=service.StudentAssessment}
// @Failure 403 {object} util.Response "未发布或未购买"
// @Router /api/courses/{courseId}/quizzes/{quizId} [get]
// @Router /api/courses/{courseId}/homeworks/{homeworkId} [get]
func (c *AssessmentController) GetForStudent(ctx *gin.Context) {
	a, err := c.AssessmentService.GetForStudent(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// Submit godoc
// @Summary 提交答案
// @Description 服务端评分并保存成绩，超过作答次数返回 403
// @Tags 测验与作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   body body service.SubmitRequest true "答案"
// @Success 201 {object} util.Response{data=repository.ResultRecord}
// @Failure 403 {object} util.Response "作答次数已用完"
// @Router /api/courses/{courseId}/quizzes/{quizId}/submit [post]
// @Router /api/courses/{courseId}/homeworks/{homeworkId}/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.AssessmentService.Submit(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// MyResults godoc
// @Summary 我的成绩
// @Tags 测验与作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=[]repository.ResultRecord}
// @Router /api/courses/{courseId}/quizzes/{quizId}/results [get]
// @Router /api/courses/{courseId}/homeworks/{homeworkId}/results [get]
func (c *AssessmentController) MyResults(ctx *gin.Context) {
	results, err := c.AssessmentService.ListMyResults(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// GetResult godoc
// @Summary 成绩详情
// @Description 数据库不可用时可能返回缓存副本（cached=true）
// @Tags 测验与作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   resultId path string true "成绩ID"
// @Success 200 {object} util.Response{data=repository.ResultRecord}
// @Failure 404 {object} util.Response "成绩不存在"
// @Router /api/courses/{courseId}/quizzes/{quizId}/results/{resultId} [get]
// @Router /api/courses/{courseId}/homeworks/{homeworkId}/results/{resultId} [get]
func (c *AssessmentController) GetResult(ctx *gin.Context) {
	result, err := c.AssessmentService.GetResult(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), ctx.Param("resultId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// List godoc
// @Summary 测验/作业列表（管理）
// @Tags 测验与作业管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]repository.Assessment}
// @Router /api/teacher/courses/{courseId}/quizzes [get]
// @Router /api/teacher/courses/{courseId}/homeworks [get]
func (c *AssessmentController) List(ctx *gin.Context) {
	list, err := c.AssessmentService.List(ctx.Request.Context(), util.GetUserFromContext(ctx), c.Kind, ctx.Param("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Create godoc
// @Summary 创建测验/作业
// @Description timeLimit 仅对测验有效
// @Tags 测验与作业管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   body body service.AssessmentRequest true "基本信息"
// @Success 201 {object} util.Response{data=repository.Assessment}
// @Router /api/teacher/courses/{courseId}/quizzes [post]
// @Router /api/teacher/courses/{courseId}/homeworks [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.AssessmentService.Create(ctx.Request.Context(), util.GetUserFromContext(ctx), c.Kind, ctx.Param("courseId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// GetManaged godoc
// @Summary 获取测验/作业（含答案）
// @Tags 测验与作业管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=service.ManagedAssessment}
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId} [get]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId} [get]
func (c *AssessmentController) GetManaged(ctx *gin.Context) {
	a, err := c.AssessmentService.GetManaged(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// Update godoc
// @Summary 更新测验/作业
// @Tags 测验与作业管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   body body service.AssessmentRequest true "基本信息"
// @Success 200 {object} util.Response{data=repository.Assessment}
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId} [put]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.AssessmentService.Update(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// Delete godoc
// @Summary 删除测验/作业
// @Description 同时删除题目和成绩
// @Tags 测验与作业管理
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Success 204 "删除成功"
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId} [delete]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	if err := c.AssessmentService.Delete(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx)); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// AddQuestion godoc
// @Summary 添加题目
// @Description 选择题的 correctAnswer 为选项下标，判断题为 true/false
// @Tags 测验与作业管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "标准答案无效"
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId}/questions [post]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId}/questions [post]
func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.AssessmentService.AddQuestion(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// UpdateQuestion godoc
// @Summary 更新题目
// @Tags 测验与作业管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   questionId path string true "题目ID"
// @Param   body body service.QuestionRequest true "题目"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId}/questions/{questionId} [put]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId}/questions/{questionId} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.AssessmentService.UpdateQuestion(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), ctx.Param("questionId"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 测验与作业管理
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Param   questionId path string true "题目ID"
// @Success 204 "删除成功"
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId}/questions/{questionId} [delete]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId}/questions/{questionId} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	if err := c.AssessmentService.DeleteQuestion(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx), ctx.Param("questionId")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// AllResults godoc
// @Summary 全部学生成绩
// @Tags 测验与作业管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Param   quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=[]repository.ResultRecord}
// @Router /api/teacher/courses/{courseId}/quizzes/{quizId}/results [get]
// @Router /api/teacher/courses/{courseId}/homeworks/{homeworkId}/results [get]
func (c *AssessmentController) AllResults(ctx *gin.Context) {
	results, err := c.AssessmentService.ListAllResults(ctx.Request.Context(), util.GetUserFromContext(ctx),
		c.Kind, ctx.Param("courseId"), c.id(ctx))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, results)
}
