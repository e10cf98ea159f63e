package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// CourseFilter 课程列表筛选条件
type CourseFilter struct {
	Grade         string
	Subject       string
	Semester      string
	Search        string
	TeacherID     uint
	PublishedOnly bool
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, "id = ?", id).Error
	return &course, err
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Save(course).Error
}

// Delete 删除课程及其全部内容、题目与学习记录
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chapterIDs []string
		if err := tx.Model(&model.Chapter{}).Where("course_id = ?", id).Pluck("id", &chapterIDs).Error; err != nil {
			return err
		}
		if len(chapterIDs) > 0 {
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&model.Attachment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&model.UserProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&model.ChapterView{}).Error; err != nil {
				return err
			}
		}

		var quizIDs, homeworkIDs []string
		if err := tx.Model(&model.Quiz{}).Where("course_id = ?", id).Pluck("id", &quizIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Homework{}).Where("course_id = ?", id).Pluck("id", &homeworkIDs).Error; err != nil {
			return err
		}
		if len(quizIDs) > 0 {
			if err := tx.Where("parent_type = ? AND parent_id IN ?", model.ContentQuiz, quizIDs).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}
		if len(homeworkIDs) > 0 {
			if err := tx.Where("parent_type = ? AND parent_id IN ?", model.ContentHomework, homeworkIDs).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}

		for _, m := range []interface{}{&model.Chapter{}, &model.Quiz{}, &model.Homework{}} {
			if err := tx.Where("course_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Course{}, "id = ?", id).Error
	})
}

func (r *CourseRepository) List(ctx context.Context, filter CourseFilter, page, limit int) ([]model.Course, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filter.TeacherID != 0 {
		query = query.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.Semester != "" {
		query = query.Where("semester = ?", filter.Semester)
	}
	if filter.Search != "" {
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&courses).Error
	return courses, total, err
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Course{}).Count(&n).Error
	return n, err
}

// CourseContents 课程下三类内容的原始集合
type CourseContents struct {
	Chapters  []model.Chapter
	Quizzes   []model.Quiz
	Homeworks []model.Homework
}

func (r *CourseRepository) LoadContents(ctx context.Context, courseID string, publishedOnly bool) (*CourseContents, error) {
	db := r.DB.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("course_id = ?", courseID)
		if publishedOnly {
			q = q.Where("is_published = ?", true)
		}
		return q.Order("position asc")
	}

	var contents CourseContents
	if err := db.Scopes(scope).Find(&contents.Chapters).Error; err != nil {
		return nil, err
	}
	if err := db.Scopes(scope).Find(&contents.Quizzes).Error; err != nil {
		return nil, err
	}
	if err := db.Scopes(scope).Find(&contents.Homeworks).Error; err != nil {
		return nil, err
	}
	return &contents, nil
}

// nextPosition 三张内容表共享的位置序列，返回 max+1
func nextPosition(db *gorm.DB, courseID string) (int, error) {
	maxPos := 0
	for _, m := range []interface{}{&model.Chapter{}, &model.Quiz{}, &model.Homework{}} {
		var p *int
		if err := db.Model(m).Where("course_id = ?", courseID).Select("MAX(position)").Scan(&p).Error; err != nil {
			return 0, err
		}
		if p != nil && *p > maxPos {
			maxPos = *p
		}
	}
	return maxPos + 1, nil
}

// AppendContent 锁定课程行后计算下一个位置并在同一事务中写入内容项，
// 并发创建不会拿到相同的位置。create 必须使用传入的 tx。
func (r *CourseRepository) AppendContent(ctx context.Context, courseID string, create func(tx *gorm.DB, position int) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := lockForUpdate(tx).Select("id").First(&course, "id = ?", courseID).Error; err != nil {
			return err
		}
		position, err := nextPosition(tx, courseID)
		if err != nil {
			return err
		}
		return create(tx, position)
	})
}

// PositionUpdate 重新排序时单个内容项的新位置
type PositionUpdate struct {
	ID       string            `json:"id" binding:"required"`
	Type     model.ContentType `json:"type" binding:"required,oneof=chapter quiz homework"`
	Position int               `json:"position" binding:"min=1"`
}

func (r *CourseRepository) Reorder(ctx context.Context, courseID string, updates []PositionUpdate) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			var m interface{}
			switch u.Type {
			case model.ContentChapter:
				m = &model.Chapter{}
			case model.ContentQuiz:
				m = &model.Quiz{}
			case model.ContentHomework:
				m = &model.Homework{}
			default:
				return util.ErrInvalidPosition
			}
			res := tx.Model(m).
				Where("id = ? AND course_id = ?", u.ID, courseID).
				UpdateColumn("position", u.Position)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return util.ErrInvalidPosition
			}
		}
		return nil
	})
}
