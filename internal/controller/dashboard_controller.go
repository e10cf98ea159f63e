package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// @Summary 获取仪表盘数据
// @Description 按角色返回：学生为已购课程完成度、最近成绩和余额；教师为课程学员数与平均得分率；管理员为全站统计
// @Tags 仪表盘
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	dashboard, err := c.DashboardService.ForRole(ctx.Request.Context(), user)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// @Summary 管理员仪表盘
// @Tags 仪表盘
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AdminDashboard}
// @Router /api/admin/dashboard [get]
func (c *DashboardController) GetAdminDashboard(ctx *gin.Context) {
	dashboard, err := c.DashboardService.Admin(ctx.Request.Context())
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}
