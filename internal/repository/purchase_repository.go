package repository

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	DB *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{DB: db}
}

func (r *PurchaseRepository) Exists(ctx context.Context, userID uint, courseID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// Purchase 扣减余额、写入流水并创建购买记录，三者在同一事务中完成
func (r *PurchaseRepository) Purchase(ctx context.Context, userID uint, course *model.Course) (*model.Purchase, error) {
	purchase := &model.Purchase{
		UserID:    userID,
		CourseID:  course.ID,
		PricePaid: course.Price,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Purchase{}).
			Where("user_id = ? AND course_id = ?", userID, course.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return util.ErrAlreadyPurchased
		}

		var user model.User
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrUserNotFound
			}
			return err
		}

		if course.Price > 0 {
			if user.Balance < course.Price {
				return util.ErrInsufficientBalance
			}
			if err := tx.Model(&user).UpdateColumn("balance", user.Balance-course.Price).Error; err != nil {
				return err
			}
			if err := tx.Create(&model.BalanceTransaction{
				UserID:      userID,
				Amount:      -course.Price,
				Type:        model.BalancePurchase,
				Description: "购买课程: " + course.Title,
				OperatorID:  userID,
			}).Error; err != nil {
				return err
			}
		}

		return tx.Create(purchase).Error
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// Grant 管理员直接开通课程，不扣余额
func (r *PurchaseRepository) Grant(ctx context.Context, userID uint, courseID string) (*model.Purchase, error) {
	exists, err := r.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadyPurchased
	}
	p := &model.Purchase{UserID: userID, CourseID: courseID}
	return p, r.DB.WithContext(ctx).Create(p).Error
}

func (r *PurchaseRepository) ListCourseIDsByUser(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *PurchaseRepository) CountByCourse(ctx context.Context, courseIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		CourseID string
		Count    int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Purchase{}).
		Select("course_id, COUNT(*) as count").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CourseID] = row.Count
	}
	return counts, nil
}

// EnrolledStudent 课程学员信息
type EnrolledStudent struct {
	UserID      uint      `json:"userId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Grade       string    `json:"grade"`
	PricePaid   float64   `json:"pricePaid"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

func (r *PurchaseRepository) ListStudents(ctx context.Context, courseID string, page, limit int) ([]EnrolledStudent, int64, error) {
	query := r.DB.WithContext(ctx).Table("purchases p").
		Joins("JOIN users u ON u.id = p.user_id AND u.deleted_at IS NULL").
		Where("p.course_id = ? AND p.deleted_at IS NULL", courseID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var students []EnrolledStudent
	err := query.Select("u.id as user_id, u.name, u.email, u.grade, p.price_paid, p.created_at as purchased_at").
		Order("p.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Scan(&students).Error
	return students, total, err
}

// Stats 全站购买数量与总收入
func (r *PurchaseRepository) Stats(ctx context.Context) (int64, float64, error) {
	var row struct {
		Count   int64
		Revenue float64
	}
	err := r.DB.WithContext(ctx).Model(&model.Purchase{}).
		Select("COUNT(*) as count, COALESCE(SUM(price_paid), 0) as revenue").
		Scan(&row).Error
	return row.Count, row.Revenue, err
}
