package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

type DashboardService struct {
	UserRepo     *repository.UserRepository
	CourseRepo   *repository.CourseRepository
	PurchaseRepo *repository.PurchaseRepository
	Assessments  *repository.AssessmentRepository
	Progress     *ProgressService
}

func NewDashboardService(
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	purchaseRepo *repository.PurchaseRepository,
	assessments *repository.AssessmentRepository,
	progress *ProgressService,
) *DashboardService {
	return &DashboardService{
		UserRepo:     userRepo,
		CourseRepo:   courseRepo,
		PurchaseRepo: purchaseRepo,
		Assessments:  assessments,
		Progress:     progress,
	}
}

const recentResultLimit = 10

type StudentCourse struct {
	Course     model.Course `json:"course"`
	Percentage float64      `json:"percentage"`
	Completed  int          `json:"completedItems"`
	Total      int          `json:"totalItems"`
}

type StudentDashboard struct {
	Balance       float64                   `json:"balance"`
	Courses       []StudentCourse           `json:"courses"`
	RecentResults []repository.ResultRecord `json:"recentResults"`
}

// Student 已购课程及完成度、最近成绩和余额
func (s *DashboardService) Student(ctx context.Context, actor *util.Claims) (*StudentDashboard, error) {
	user, err := s.UserRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	courseIDs, err := s.PurchaseRepo.ListCourseIDsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	courses, err := s.CourseRepo.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	dash := &StudentDashboard{
		Balance:       user.Balance,
		Courses:       make([]StudentCourse, 0, len(courses)),
		RecentResults: []repository.ResultRecord{},
	}
	for i := range courses {
		p, err := s.Progress.progressFor(ctx, actor.UserID, &courses[i])
		if err != nil {
			return nil, err
		}
		dash.Courses = append(dash.Courses, StudentCourse{
			Course:     courses[i],
			Percentage: p.Percentage,
			Completed:  p.CompletedItems,
			Total:      p.TotalItems,
		})
	}

	recent, err := s.Assessments.RecentResults(ctx, actor.UserID, recentResultLimit)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		dash.RecentResults = recent
	}
	return dash, nil
}

type TeacherCourse struct {
	Course                 model.Course `json:"course"`
	StudentCount           int64        `json:"studentCount"`
	ChapterCount           int          `json:"chapterCount"`
	QuizCount              int          `json:"quizCount"`
	HomeworkCount          int          `json:"homeworkCount"`
	AverageQuizPercent     float64      `json:"averageQuizPercentage"`
	AverageHomeworkPercent float64      `json:"averageHomeworkPercentage"`
}

type TeacherDashboard struct {
	Courses       []TeacherCourse `json:"courses"`
	TotalStudents int64           `json:"totalStudents"`
}

// Teacher 教师名下课程的学员数、内容数与平均得分率
func (s *DashboardService) Teacher(ctx context.Context, actor *util.Claims) (*TeacherDashboard, error) {
	courses, _, err := s.CourseRepo.List(ctx, repository.CourseFilter{TeacherID: actor.UserID}, 1, 1000)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	students, err := s.PurchaseRepo.CountByCourse(ctx, ids)
	if err != nil {
		return nil, err
	}

	dash := &TeacherDashboard{Courses: make([]TeacherCourse, 0, len(courses))}
	for _, c := range courses {
		contents, err := s.CourseRepo.LoadContents(ctx, c.ID, false)
		if err != nil {
			return nil, err
		}
		quizAvg, err := s.Assessments.AveragePercentage(ctx, model.ContentQuiz, c.ID)
		if err != nil {
			return nil, err
		}
		homeworkAvg, err := s.Assessments.AveragePercentage(ctx, model.ContentHomework, c.ID)
		if err != nil {
			return nil, err
		}

		dash.Courses = append(dash.Courses, TeacherCourse{
			Course:                 c,
			StudentCount:           students[c.ID],
			ChapterCount:           len(contents.Chapters),
			QuizCount:              len(contents.Quizzes),
			HomeworkCount:          len(contents.Homeworks),
			AverageQuizPercent:     quizAvg,
			AverageHomeworkPercent: homeworkAvg,
		})
		dash.TotalStudents += students[c.ID]
	}
	return dash, nil
}

type AdminDashboard struct {
	UsersByRole   map[model.UserRole]int64 `json:"usersByRole"`
	CourseCount   int64                    `json:"courseCount"`
	PurchaseCount int64                    `json:"purchaseCount"`
	Revenue       float64                  `json:"revenue"`
}

func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	roles, err := s.UserRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.CourseRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	purchases, revenue, err := s.PurchaseRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminDashboard{
		UsersByRole:   roles,
		CourseCount:   courses,
		PurchaseCount: purchases,
		Revenue:       revenue,
	}, nil
}

// ForRole 按调用者角色返回对应的仪表盘
func (s *DashboardService) ForRole(ctx context.Context, actor *util.Claims) (interface{}, error) {
	switch actor.Role {
	case model.Admin:
		return s.Admin(ctx)
	case model.Teacher:
		return s.Teacher(ctx, actor)
	}
	return s.Student(ctx, actor)
}
