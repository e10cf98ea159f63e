package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// RecordCompletion 在同一事务内完成观看次数校验、追加观看记录和进度 upsert。
// 有次数上限时先锁定章节行，同一章节的并发完成请求会在此串行。
// 返回本次写入后的观看次数。
func (r *ProgressRepository) RecordCompletion(ctx context.Context, userID uint, chapter *model.Chapter) (int64, error) {
	var views int64
	limit := chapter.ViewLimit()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if limit > 0 {
			var locked model.Chapter
			if err := lockForUpdate(tx).Select("id").First(&locked, "id = ?", chapter.ID).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&model.ChapterView{}).
			Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).
			Count(&views).Error; err != nil {
			return err
		}
		if limit > 0 && views >= int64(limit) {
			return util.ErrViewLimitReached
		}

		if err := tx.Create(&model.ChapterView{UserID: userID, ChapterID: chapter.ID}).Error; err != nil {
			return err
		}
		views++

		progress := model.UserProgress{UserID: userID, ChapterID: chapter.ID, IsCompleted: true}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_completed": true,
				"updated_at":   time.Now(),
			}),
		}).Create(&progress).Error
	})
	return views, err
}

// DeleteProgress 物理删除进度行，返回是否确实删除了记录
func (r *ProgressRepository) DeleteProgress(ctx context.Context, userID uint, chapterID string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Delete(&model.UserProgress{})
	return res.RowsAffected > 0, res.Error
}

func (r *ProgressRepository) CountViews(ctx context.Context, userID uint, chapterID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ChapterView{}).
		Where("user_id = ? AND chapter_id = ?", userID, chapterID).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) IsCompleted(ctx context.Context, userID uint, chapterID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ? AND chapter_id = ? AND is_completed = ?", userID, chapterID, true).
		Count(&count).Error
	return count > 0, err
}

// CompletedChapterIDs 返回给定章节中用户已完成的章节集合
func (r *ProgressRepository) CompletedChapterIDs(ctx context.Context, userID uint, chapterIDs []string) (map[string]bool, error) {
	done := make(map[string]bool)
	if len(chapterIDs) == 0 {
		return done, nil
	}
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ? AND is_completed = ? AND chapter_id IN ?", userID, true, chapterIDs).
		Pluck("chapter_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}
