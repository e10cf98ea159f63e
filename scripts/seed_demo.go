// 初始化演示数据：管理员、教师、学生各一个，以及一门包含章节、测验和作业的课程。
//
// 用法: go run scripts/seed_demo.go -config configs
//
// 已存在的账号会被跳过，课程每次执行都会新建一门。

package main

import (
	"context"
	"errors"
	"flag"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func ensureUser(ctx context.Context, users *service.UserService, repo *repository.UserRepository, req service.CreateUserRequest) *model.User {
	user, err := users.CreateUser(ctx, req)
	if errors.Is(err, util.ErrEmailRegistered) {
		existing, err := repo.FindByEmail(ctx, req.Email)
		if err != nil {
			log.Fatalf("读取用户 %s 失败: %v", req.Email, err)
		}
		return existing
	}
	if err != nil {
		log.Fatalf("创建用户 %s 失败: %v", req.Email, err)
	}
	return user
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	users := service.NewUserService(userRepo)
	access := service.NewAccessService(purchaseRepo)
	courses := service.NewCourseService(repository.NewCourseRepository(db), purchaseRepo, access)
	chapters := service.NewChapterService(repository.NewChapterRepository(db), repository.NewProgressRepository(db),
		courses, access, service.NewStorageService(cfg))
	assessments := service.NewAssessmentService(repository.NewAssessmentRepository(db), courses, access, nil)

	admin := ensureUser(ctx, users, userRepo, service.CreateUserRequest{
		Name: "管理员", Email: "admin@example.com", Password: "admin123", Role: model.Admin,
	})
	teacher := ensureUser(ctx, users, userRepo, service.CreateUserRequest{
		Name: "王老师", Email: "teacher@example.com", Password: "teacher123", Role: model.Teacher,
		Subjects: []string{"数学"},
	})
	student := ensureUser(ctx, users, userRepo, service.CreateUserRequest{
		Name: "李同学", Email: "student@example.com", Password: "student123", Role: model.Student, Grade: "七年级",
	})

	if _, err := users.AdjustBalance(ctx, admin.ID, student.ID, service.BalanceRequest{
		Amount: 500, Type: model.BalanceTopUp, Description: "演示充值",
	}); err != nil {
		log.Fatalf("充值失败: %v", err)
	}

	actor := &util.Claims{UserID: teacher.ID, Role: teacher.Role, Email: teacher.Email}
	course, err := courses.Create(ctx, actor, service.CourseRequest{
		Title:       ptr("七年级数学（上）"),
		Description: ptr("有理数、整式与一元一次方程"),
		Price:       ptr(99.0),
		Grade:       ptr("七年级"),
		Subject:     ptr("数学"),
		Semester:    ptr("上学期"),
		IsPublished: ptr(true),
	})
	if err != nil {
		log.Fatalf("创建课程失败: %v", err)
	}

	for i, title := range []string{"正数和负数", "有理数的加减法", "有理数的乘除法"} {
		req := service.ChapterRequest{
			Title:       ptr(title),
			IsPublished: ptr(true),
			IsFree:      ptr(i == 0),
		}
		if i > 0 {
			req.MaxViews = ptr(3)
		}
		if _, err := chapters.Create(ctx, actor, course.ID, req); err != nil {
			log.Fatalf("创建章节失败: %v", err)
		}
	}

	quiz, err := assessments.Create(ctx, actor, model.ContentQuiz, course.ID, service.AssessmentRequest{
		Title:       ptr("有理数单元测验"),
		IsPublished: ptr(true),
		TimeLimit:   ptr(20),
		MaxAttempts: ptr(2),
	})
	if err != nil {
		log.Fatalf("创建测验失败: %v", err)
	}
	questions := []service.QuestionRequest{
		{Type: model.MultipleChoice, Text: "-3 的相反数是", Options: []string{"-3", "3", "1/3"}, CorrectAnswer: "1", Points: ptr(2)},
		{Type: model.TrueFalse, Text: "0 既不是正数也不是负数", CorrectAnswer: "true", Points: ptr(1)},
		{Type: model.ShortAnswer, Text: "(-2) × (-5) = ?", CorrectAnswer: "10", Points: ptr(2)},
	}
	for _, q := range questions {
		if _, err := assessments.AddQuestion(ctx, actor, model.ContentQuiz, course.ID, quiz.ID, q); err != nil {
			log.Fatalf("添加题目失败: %v", err)
		}
	}

	homework, err := assessments.Create(ctx, actor, model.ContentHomework, course.ID, service.AssessmentRequest{
		Title:       ptr("有理数课后作业"),
		IsPublished: ptr(true),
	})
	if err != nil {
		log.Fatalf("创建作业失败: %v", err)
	}
	if _, err := assessments.AddQuestion(ctx, actor, model.ContentHomework, course.ID, homework.ID, service.QuestionRequest{
		Type: model.ShortAnswer, Text: "计算 -7 + 12", CorrectAnswer: "5",
	}); err != nil {
		log.Fatalf("添加题目失败: %v", err)
	}

	logger.Log.Info("演示数据初始化完成",
		zap.String("courseId", course.ID),
		zap.Uint("teacherId", teacher.ID),
		zap.Uint("studentId", student.ID),
	)
}
