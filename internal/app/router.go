package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/courses", c.course.ListCatalogue)
	}
}

func registerAssessmentStudentRoutes(rg *gin.RouterGroup, path string, ac *controller.AssessmentController) {
	g := rg.Group(path + "/:" + ac.Param())
	{
		g.GET("", ac.GetForStudent)
		g.POST("/submit", ac.Submit)
		g.GET("/results", ac.MyResults)
		g.GET("/results/:resultId", ac.GetResult)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.Profile)
	rg.PUT("/user/profile", c.auth.UpdateProfile)
	rg.GET("/dashboard", c.dashboard.GetDashboard)

	course := rg.Group("/courses/:courseId")
	{
		course.GET("", c.course.GetCourse)
		course.GET("/access", c.course.CheckAccess)
		course.POST("/purchase", c.course.Purchase)
		course.GET("/contents", c.course.Contents)
		course.GET("/progress", c.progress.CourseProgress)

		// 章节与进度
		course.GET("/chapters/:chapterId", c.chapter.GetChapter)
		course.POST("/chapters/:chapterId/open", c.chapter.OpenChapter)
		course.PUT("/chapters/:chapterId/progress", c.progress.MarkComplete)
		course.DELETE("/chapters/:chapterId/progress", c.progress.ResetProgress)

		// 测验与作业
		registerAssessmentStudentRoutes(course, "/quizzes", c.quiz)
		registerAssessmentStudentRoutes(course, "/homeworks", c.homework)
	}
}

func registerAssessmentTeacherRoutes(rg *gin.RouterGroup, path string, ac *controller.AssessmentController) {
	rg.GET(path, ac.List)
	rg.POST(path, ac.Create)

	g := rg.Group(path + "/:" + ac.Param())
	{
		g.GET("", ac.GetManaged)
		g.PUT("", ac.Update)
		g.DELETE("", ac.Delete)
		g.POST("/questions", ac.AddQuestion)
		g.PUT("/questions/:questionId", ac.UpdateQuestion)
		g.DELETE("/questions/:questionId", ac.DeleteQuestion)
		g.GET("/results", ac.AllResults)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/courses", c.course.ListManaged)
		teacher.POST("/courses", c.course.CreateCourse)

		course := teacher.Group("/courses/:courseId")
		{
			course.GET("", c.course.GetManaged)
			course.PUT("", c.course.UpdateCourse)
			course.DELETE("", c.course.DeleteCourse)
			course.PUT("/reorder", c.course.Reorder)
			course.GET("/students", c.course.Students)

			// 章节管理
			course.GET("/chapters", c.chapter.ListChapters)
			course.POST("/chapters", c.chapter.CreateChapter)
			course.GET("/chapters/:chapterId", c.chapter.GetManagedChapter)
			course.PUT("/chapters/:chapterId", c.chapter.UpdateChapter)
			course.DELETE("/chapters/:chapterId", c.chapter.DeleteChapter)
			course.POST("/chapters/:chapterId/video", c.chapter.UploadVideo)
			course.POST("/chapters/:chapterId/attachments", c.chapter.AddAttachment)
			course.DELETE("/chapters/:chapterId/attachments/:attachmentId", c.chapter.DeleteAttachment)

			// 测验与作业管理
			registerAssessmentTeacherRoutes(course, "/quizzes", c.quiz)
			registerAssessmentTeacherRoutes(course, "/homeworks", c.homework)
		}
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/dashboard", c.dashboard.GetAdminDashboard)

		admin.GET("/users", c.user.GetUsers)
		admin.POST("/users", c.user.CreateUser)
		admin.GET("/users/:id", c.user.GetUser)
		admin.PUT("/users/:id", c.user.UpdateUser)
		admin.DELETE("/users/:id", c.user.DeleteUser)
		admin.POST("/users/:id/reset-password", c.user.ResetPassword)
		admin.POST("/users/:id/disable", c.user.DisableUser)
		admin.POST("/users/:id/balance", c.user.AdjustBalance)
		admin.GET("/users/:id/balance/transactions", c.user.BalanceTransactions)
		admin.POST("/users/:id/courses", c.user.GrantCourse)
	}
}
