package controller

import (
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理员的用户与余额管理
type UserController struct {
	UserService   *service.UserService
	CourseService *service.CourseService
	PageSize      int
}

func NewUserController(userService *service.UserService, courseService *service.CourseService, pageSize int) *UserController {
	return &UserController{
		UserService:   userService,
		CourseService: courseService,
		PageSize:      pageSize,
	}
}

func userIDParam(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "无效的用户ID")
		return 0, false
	}
	return id, true
}

// GetUsers godoc
// @Summary 获取用户列表
// @Description 获取用户列表，支持分页和筛选
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Param   role query string false "角色筛选"
// @Param   grade query string false "年级筛选"
// @Param   search query string false "搜索关键词"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.User}} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/admin/users [get]
func (c *UserController) GetUsers(ctx *gin.Context) {
	page, limit := util.Pagination(ctx, c.PageSize)
	filter := repository.UserFilter{
		Role:   ctx.Query("role"),
		Grade:  ctx.Query("grade"),
		Search: ctx.Query("search"),
	}

	users, total, err := c.UserService.GetUsers(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

// CreateUser godoc
// @Summary 创建用户
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateUserRequest true "用户信息"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req service.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// GetUser godoc
// @Summary 获取用户详情
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.GetUserByID(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateUser godoc
// @Summary 更新用户信息
// @Description 提供 password 时同时重置密码
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body service.UpdateUserRequest true "用户信息"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user, err := c.UserService.UpdateUser(ctx.Request.Context(), id, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ResetPassword godoc
// @Summary 重置用户密码
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=object} "返回临时密码"
// @Router /api/admin/users/{id}/reset-password [post]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	password, err := c.UserService.ResetPassword(ctx.Request.Context(), id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tempPassword": password})
}

// DeleteUser godoc
// @Summary 删除用户
// @Tags 用户管理
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Success 204 "删除成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	if claims := util.GetUserFromContext(ctx); claims != nil && claims.UserID == id {
		util.BadRequest(ctx, "不能删除自己的账号")
		return
	}
	if err := c.UserService.DeleteUser(ctx.Request.Context(), id); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

type disableRequest struct {
	Disabled bool `json:"disabled"`
}

// DisableUser godoc
// @Summary 禁用/启用用户
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body disableRequest true "是否禁用"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/disable [post]
func (c *UserController) DisableUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	var req disableRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.UserService.DisableUser(ctx.Request.Context(), id, req.Disabled); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"disabled": req.Disabled})
}

// AdjustBalance godoc
// @Summary 充值或调整余额
// @Description type 为 topup 时金额必须为正，adjust 可为负但余额不能小于 0
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body service.BalanceRequest true "金额"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 403 {object} util.Response "余额不足"
// @Router /api/admin/users/{id}/balance [post]
func (c *UserController) AdjustBalance(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	var req service.BalanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	operator := util.GetUserFromContext(ctx)
	user, err := c.UserService.AdjustBalance(ctx.Request.Context(), operator.UserID, id, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// BalanceTransactions godoc
// @Summary 余额流水
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]model.BalanceTransaction}}
// @Router /api/admin/users/{id}/balance/transactions [get]
func (c *UserController) BalanceTransactions(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx, c.PageSize)
	txs, total, err := c.UserService.ListBalanceTransactions(ctx.Request.Context(), id, page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: txs, Total: total, Page: page, Limit: limit})
}

type grantRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// GrantCourse godoc
// @Summary 为用户开通课程
// @Description 不扣除余额
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body grantRequest true "课程"
// @Success 201 {object} util.Response{data=model.Purchase}
// @Failure 409 {object} util.Response "已拥有该课程"
// @Router /api/admin/users/{id}/courses [post]
func (c *UserController) GrantCourse(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	var req grantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := c.UserService.GetUserByID(ctx.Request.Context(), id); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	purchase, err := c.CourseService.Grant(ctx.Request.Context(), id, req.CourseID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, purchase)
}
