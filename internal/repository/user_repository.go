package repository

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// UserFilter 用户列表筛选条件
type UserFilter struct {
	Role   string
	Search string
	Grade  string
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).Error
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[model.UserRole]int64, error) {
	var rows []struct {
		Role  model.UserRole
		Count int64
	}
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("role, COUNT(*) as count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.UserRole]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// AdjustBalance 在事务中修改余额并写入流水，余额不允许为负
func (r *UserRepository) AdjustBalance(ctx context.Context, userID uint, amount float64, txType model.BalanceTransactionType, description string, operatorID uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}
		if user.Balance+amount < 0 {
			return ErrNegativeBalance
		}
		user.Balance += amount
		if err := tx.Model(&user).UpdateColumn("balance", user.Balance).Error; err != nil {
			return err
		}
		return tx.Create(&model.BalanceTransaction{
			UserID:      userID,
			Amount:      amount,
			Type:        txType,
			Description: description,
			OperatorID:  operatorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListBalanceTransactions(ctx context.Context, userID uint, page, limit int) ([]model.BalanceTransaction, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.BalanceTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []model.BalanceTransaction
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&txs).Error
	return txs, total, err
}

var ErrNegativeBalance = errors.New("balance cannot become negative")

// lockForUpdate SQLite 不支持 FOR UPDATE，写操作本身已串行化
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
