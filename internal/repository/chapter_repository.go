package repository

import (
	"context"
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ChapterRepository struct {
	DB *gorm.DB
}

func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *ChapterRepository) WithTx(tx *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: tx}
}

func (r *ChapterRepository) Create(ctx context.Context, chapter *model.Chapter) error {
	return r.DB.WithContext(ctx).Create(chapter).Error
}

// FindInCourse 查找课程下的章节并预加载附件
func (r *ChapterRepository) FindInCourse(ctx context.Context, courseID, chapterID string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Where("id = ? AND course_id = ?", chapterID, courseID).
		First(&chapter).Error
	return &chapter, err
}

func (r *ChapterRepository) FindByID(ctx context.Context, chapterID string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).First(&chapter, "id = ?", chapterID).Error
	return &chapter, err
}

func (r *ChapterRepository) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]model.Chapter, error) {
	query := r.DB.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var chapters []model.Chapter
	err := query.Order("position asc").Find(&chapters).Error
	return chapters, err
}

func (r *ChapterRepository) Update(ctx context.Context, chapter *model.Chapter) error {
	return r.DB.WithContext(ctx).Omit("Attachments").Save(chapter).Error
}

// Delete 删除章节及附件、学习进度和观看记录
func (r *ChapterRepository) Delete(ctx context.Context, chapterID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chapter_id = ?", chapterID).Delete(&model.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chapter_id = ?", chapterID).Delete(&model.UserProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chapter_id = ?", chapterID).Delete(&model.ChapterView{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Chapter{}, "id = ?", chapterID).Error
	})
}

func (r *ChapterRepository) CreateAttachment(ctx context.Context, attachment *model.Attachment) error {
	return r.DB.WithContext(ctx).Create(attachment).Error
}

func (r *ChapterRepository) FindAttachment(ctx context.Context, chapterID, attachmentID string) (*model.Attachment, error) {
	var attachment model.Attachment
	err := r.DB.WithContext(ctx).
		Where("id = ? AND chapter_id = ?", attachmentID, chapterID).
		First(&attachment).Error
	return &attachment, err
}

func (r *ChapterRepository) DeleteAttachment(ctx context.Context, attachmentID string) error {
	return r.DB.WithContext(ctx).Delete(&model.Attachment{}, "id = ?", attachmentID).Error
}
