package app

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	chapter    *repository.ChapterRepository
	progress   *repository.ProgressRepository
	purchase   *repository.PurchaseRepository
	assessment *repository.AssessmentRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	storage     *service.StorageService
	access      *service.AccessService
	course      *service.CourseService
	chapter     *service.ChapterService
	progress    *service.ProgressService
	assessment  *service.AssessmentService
	dashboard   *service.DashboardService
	resultCache service.ResultCache
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	course    *controller.CourseController
	chapter   *controller.ChapterController
	progress  *controller.ProgressController
	quiz      *controller.AssessmentController
	homework  *controller.AssessmentController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

// RegisterConfigCallback 配置文件变更后依次调用
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ConfigCallbacks 返回已注册的配置回调，供配置监听使用
func (a *App) ConfigCallbacks() []func(*config.Config) {
	return a.configCallbacks
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		chapter:    repository.NewChapterRepository(db),
		progress:   repository.NewProgressRepository(db),
		purchase:   repository.NewPurchaseRepository(db),
		assessment: repository.NewAssessmentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.access = service.NewAccessService(repos.purchase)
	s.course = service.NewCourseService(repos.course, repos.purchase, s.access)
	s.chapter = service.NewChapterService(repos.chapter, repos.progress, s.course, s.access, s.storage)
	s.progress = service.NewProgressService(repos.progress, repos.assessment, s.course, s.chapter, s.access)

	// Redis 未启用时成绩不缓存
	if rdb != nil {
		s.resultCache = service.NewRedisResultCache(rdb, cfg.Learning.ResultCacheTTL())
	} else {
		s.resultCache = service.NoopResultCache{}
	}
	s.assessment = service.NewAssessmentService(repos.assessment, s.course, s.access, s.resultCache)

	s.dashboard = service.NewDashboardService(repos.user, repos.course, repos.purchase, repos.assessment, s.progress)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	pageSize := a.Config.Learning.DefaultPageSize
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.user, s.course, pageSize),
		course:    controller.NewCourseController(s.course, pageSize),
		chapter:   controller.NewChapterController(s.chapter, s.progress),
		progress:  controller.NewProgressController(s.progress),
		quiz:      controller.NewAssessmentController(s.assessment, model.ContentQuiz),
		homework:  controller.NewAssessmentController(s.assessment, model.ContentHomework),
		dashboard: controller.NewDashboardController(s.dashboard),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate || cfg.MigrateOnly)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存只用于成绩兜底读取，连接失败时降级运行
		logger.Log.Warn("Failed to initialize redis, result cache disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	app.RegisterConfigCallback(logger.SetLevel)
	app.RegisterConfigCallback(func(c *config.Config) {
		services.resultCache.SetTTL(c.Learning.ResultCacheTTL())
	})

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("lms-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exiting")
}
