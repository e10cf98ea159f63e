package repository

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"sort"

	"gorm.io/gorm"
)

// Assessment 测验与作业的统一视图，Kind 决定落到哪张表
type Assessment struct {
	model.ContentBase
	Kind        model.ContentType `json:"type"`
	TimeLimit   int               `json:"timeLimit,omitempty"`
	MaxAttempts int               `json:"maxAttempts"`
}

// ResultRecord 测验或作业的一次成绩快照
type ResultRecord struct {
	model.ResultBase
	Kind     model.ContentType `json:"type"`
	ParentID string            `json:"parentId"`
	Cached   bool              `json:"cached,omitempty"`
}

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

func fromQuiz(q model.Quiz) Assessment {
	return Assessment{ContentBase: q.ContentBase, Kind: model.ContentQuiz, TimeLimit: q.TimeLimit, MaxAttempts: q.MaxAttempts}
}

func fromHomework(h model.Homework) Assessment {
	return Assessment{ContentBase: h.ContentBase, Kind: model.ContentHomework, MaxAttempts: h.MaxAttempts}
}

func unsupportedKind(kind model.ContentType) error {
	return fmt.Errorf("unsupported assessment type %q", kind)
}

func (r *AssessmentRepository) Create(ctx context.Context, a *Assessment) error {
	db := r.DB.WithContext(ctx)
	switch a.Kind {
	case model.ContentQuiz:
		q := model.Quiz{ContentBase: a.ContentBase, TimeLimit: a.TimeLimit, MaxAttempts: a.MaxAttempts}
		if err := db.Create(&q).Error; err != nil {
			return err
		}
		a.ContentBase = q.ContentBase
	case model.ContentHomework:
		h := model.Homework{ContentBase: a.ContentBase, MaxAttempts: a.MaxAttempts}
		if err := db.Create(&h).Error; err != nil {
			return err
		}
		a.ContentBase = h.ContentBase
	default:
		return unsupportedKind(a.Kind)
	}
	return nil
}

func (r *AssessmentRepository) Find(ctx context.Context, kind model.ContentType, courseID, id string) (*Assessment, error) {
	db := r.DB.WithContext(ctx).Where("id = ? AND course_id = ?", id, courseID)
	switch kind {
	case model.ContentQuiz:
		var q model.Quiz
		if err := db.First(&q).Error; err != nil {
			return nil, err
		}
		a := fromQuiz(q)
		return &a, nil
	case model.ContentHomework:
		var h model.Homework
		if err := db.First(&h).Error; err != nil {
			return nil, err
		}
		a := fromHomework(h)
		return &a, nil
	}
	return nil, unsupportedKind(kind)
}

func (r *AssessmentRepository) List(ctx context.Context, kind model.ContentType, courseID string, publishedOnly bool) ([]Assessment, error) {
	db := r.DB.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		db = db.Where("is_published = ?", true)
	}
	db = db.Order("position asc")

	var out []Assessment
	switch kind {
	case model.ContentQuiz:
		var quizzes []model.Quiz
		if err := db.Find(&quizzes).Error; err != nil {
			return nil, err
		}
		for _, q := range quizzes {
			out = append(out, fromQuiz(q))
		}
	case model.ContentHomework:
		var homeworks []model.Homework
		if err := db.Find(&homeworks).Error; err != nil {
			return nil, err
		}
		for _, h := range homeworks {
			out = append(out, fromHomework(h))
		}
	default:
		return nil, unsupportedKind(kind)
	}
	return out, nil
}

func (r *AssessmentRepository) Update(ctx context.Context, a *Assessment) error {
	db := r.DB.WithContext(ctx)
	switch a.Kind {
	case model.ContentQuiz:
		return db.Save(&model.Quiz{ContentBase: a.ContentBase, TimeLimit: a.TimeLimit, MaxAttempts: a.MaxAttempts}).Error
	case model.ContentHomework:
		return db.Save(&model.Homework{ContentBase: a.ContentBase, MaxAttempts: a.MaxAttempts}).Error
	}
	return unsupportedKind(a.Kind)
}

// Delete 删除测验或作业，连同题目和成绩
func (r *AssessmentRepository) Delete(ctx context.Context, kind model.ContentType, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_type = ? AND parent_id = ?", kind, id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		switch kind {
		case model.ContentQuiz:
			if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizResult{}).Error; err != nil {
				return err
			}
			return tx.Delete(&model.Quiz{}, "id = ?", id).Error
		case model.ContentHomework:
			if err := tx.Where("homework_id = ?", id).Delete(&model.HomeworkResult{}).Error; err != nil {
				return err
			}
			return tx.Delete(&model.Homework{}, "id = ?", id).Error
		}
		return unsupportedKind(kind)
	})
}

func (r *AssessmentRepository) ListQuestions(ctx context.Context, kind model.ContentType, parentID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("parent_type = ? AND parent_id = ?", kind, parentID).
		Order("position asc, created_at asc").
		Find(&questions).Error
	return questions, err
}

func (r *AssessmentRepository) FindQuestion(ctx context.Context, kind model.ContentType, parentID, questionID string) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).
		Where("id = ? AND parent_type = ? AND parent_id = ?", questionID, kind, parentID).
		First(&q).Error
	return &q, err
}

func (r *AssessmentRepository) NextQuestionPosition(ctx context.Context, kind model.ContentType, parentID string) (int, error) {
	var p *int
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("parent_type = ? AND parent_id = ?", kind, parentID).
		Select("MAX(position)").Scan(&p).Error
	if err != nil || p == nil {
		return 1, err
	}
	return *p + 1, nil
}

func (r *AssessmentRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *AssessmentRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *AssessmentRepository) DeleteQuestion(ctx context.Context, questionID string) error {
	return r.DB.WithContext(ctx).Delete(&model.Question{}, "id = ?", questionID).Error
}

func resultTable(kind model.ContentType) (string, string, error) {
	switch kind {
	case model.ContentQuiz:
		return model.QuizResult{}.TableName(), "quiz_id", nil
	case model.ContentHomework:
		return model.HomeworkResult{}.TableName(), "homework_id", nil
	}
	return "", "", unsupportedKind(kind)
}

func (r *AssessmentRepository) CountAttempts(ctx context.Context, kind model.ContentType, userID uint, parentID string) (int64, error) {
	table, column, err := resultTable(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.DB.WithContext(ctx).Table(table).
		Where("user_id = ? AND "+column+" = ? AND deleted_at IS NULL", userID, parentID).
		Count(&count).Error
	return count, err
}

// CreateResult 写入不可变的成绩快照
func (r *AssessmentRepository) CreateResult(ctx context.Context, rec *ResultRecord) error {
	db := r.DB.WithContext(ctx)
	switch rec.Kind {
	case model.ContentQuiz:
		row := model.QuizResult{ResultBase: rec.ResultBase, QuizID: rec.ParentID}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		rec.ResultBase = row.ResultBase
	case model.ContentHomework:
		row := model.HomeworkResult{ResultBase: rec.ResultBase, HomeworkID: rec.ParentID}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		rec.ResultBase = row.ResultBase
	default:
		return unsupportedKind(rec.Kind)
	}
	return nil
}

func (r *AssessmentRepository) FindResult(ctx context.Context, kind model.ContentType, parentID, resultID string) (*ResultRecord, error) {
	db := r.DB.WithContext(ctx).Where("id = ?", resultID)
	switch kind {
	case model.ContentQuiz:
		var row model.QuizResult
		if err := db.Where("quiz_id = ?", parentID).First(&row).Error; err != nil {
			return nil, err
		}
		return &ResultRecord{ResultBase: row.ResultBase, Kind: kind, ParentID: row.QuizID}, nil
	case model.ContentHomework:
		var row model.HomeworkResult
		if err := db.Where("homework_id = ?", parentID).First(&row).Error; err != nil {
			return nil, err
		}
		return &ResultRecord{ResultBase: row.ResultBase, Kind: kind, ParentID: row.HomeworkID}, nil
	}
	return nil, unsupportedKind(kind)
}

// ListResults userID 为 0 时返回全部学生的成绩
func (r *AssessmentRepository) ListResults(ctx context.Context, kind model.ContentType, parentID string, userID uint) ([]ResultRecord, error) {
	db := r.DB.WithContext(ctx)
	if userID != 0 {
		db = db.Where("user_id = ?", userID)
	}
	db = db.Order("created_at DESC")

	var out []ResultRecord
	switch kind {
	case model.ContentQuiz:
		var rows []model.QuizResult
		if err := db.Where("quiz_id = ?", parentID).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, ResultRecord{ResultBase: row.ResultBase, Kind: kind, ParentID: row.QuizID})
		}
	case model.ContentHomework:
		var rows []model.HomeworkResult
		if err := db.Where("homework_id = ?", parentID).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, ResultRecord{ResultBase: row.ResultBase, Kind: kind, ParentID: row.HomeworkID})
		}
	default:
		return nil, unsupportedKind(kind)
	}
	return out, nil
}

// RecentResults 用户最近的成绩，测验与作业合并后按时间倒序
func (r *AssessmentRepository) RecentResults(ctx context.Context, userID uint, limit int) ([]ResultRecord, error) {
	db := r.DB.WithContext(ctx)

	var quizRows []model.QuizResult
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&quizRows).Error; err != nil {
		return nil, err
	}
	var homeworkRows []model.HomeworkResult
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&homeworkRows).Error; err != nil {
		return nil, err
	}

	out := make([]ResultRecord, 0, len(quizRows)+len(homeworkRows))
	for _, row := range quizRows {
		out = append(out, ResultRecord{ResultBase: row.ResultBase, Kind: model.ContentQuiz, ParentID: row.QuizID})
	}
	for _, row := range homeworkRows {
		out = append(out, ResultRecord{ResultBase: row.ResultBase, Kind: model.ContentHomework, ParentID: row.HomeworkID})
	}
	sortResultsByTime(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortResultsByTime(results []ResultRecord) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}

// AttemptedIDs 返回用户至少提交过一次的测验或作业
func (r *AssessmentRepository) AttemptedIDs(ctx context.Context, kind model.ContentType, userID uint, parentIDs []string) (map[string]bool, error) {
	done := make(map[string]bool)
	if len(parentIDs) == 0 {
		return done, nil
	}
	table, column, err := resultTable(kind)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = r.DB.WithContext(ctx).Table(table).
		Where("user_id = ? AND deleted_at IS NULL AND "+column+" IN ?", userID, parentIDs).
		Distinct(column).
		Pluck(column, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

// AveragePercentage 课程内某类测评的平均得分率，没有成绩时为 0
func (r *AssessmentRepository) AveragePercentage(ctx context.Context, kind model.ContentType, courseID string) (float64, error) {
	table, _, err := resultTable(kind)
	if err != nil {
		return 0, err
	}
	var avg *float64
	err = r.DB.WithContext(ctx).Table(table).
		Where("course_id = ? AND deleted_at IS NULL", courseID).
		Select("AVG(percentage)").Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
