package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 管理员对用户与余额的管理
type UserService struct {
	UserRepo *repository.UserRepository
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

func (s *UserService) findUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetUsers 获取用户列表，支持分页和筛选
func (s *UserService) GetUsers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(ctx, filter, page, limit)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.findUser(ctx, id)
}

type CreateUserRequest struct {
	Name     string         `json:"name" binding:"required,max=100"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Role     model.UserRole `json:"role" binding:"required,oneof=student teacher admin"`
	Grade    string         `json:"grade"`
	Subjects []string       `json:"subjects"`
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.UserRepo.FindByEmail(ctx, email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:     req.Name,
		Email:    email,
		Password: string(hashed),
		Role:     req.Role,
		Grade:    req.Grade,
		Subjects: req.Subjects,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

type UpdateUserRequest struct {
	Name     *string         `json:"name" binding:"omitempty,max=100"`
	Email    *string         `json:"email" binding:"omitempty,email"`
	Role     *model.UserRole `json:"role" binding:"omitempty,oneof=student teacher admin"`
	Grade    *string         `json:"grade"`
	Subjects []string        `json:"subjects"`
	Disabled *bool           `json:"disabled"`
	Password string          `json:"password" binding:"omitempty,min=6"`
}

// UpdateUser 更新用户信息，提供 password 时同时修改密码
func (s *UserService) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest) (*model.User, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if _, err := s.UserRepo.FindByEmail(ctx, email); err == nil {
				return nil, util.ErrEmailRegistered
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Grade != nil {
		user.Grade = *req.Grade
	}
	if req.Subjects != nil {
		user.Subjects = req.Subjects
	}
	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword 重置为随机临时密码并返回明文
func (s *UserService) ResetPassword(ctx context.Context, userID uint) (string, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	tempPassword := "tmp" + util.GenerateRandomString(9)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user.Password = string(hashedPassword)

	if err := s.UserRepo.Update(ctx, user); err != nil {
		return "", err
	}
	return tempPassword, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.UserRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	return nil
}

// DisableUser 禁用/启用用户
func (s *UserService) DisableUser(ctx context.Context, id uint, disable bool) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	user.Disabled = disable
	return s.UserRepo.Update(ctx, user)
}

type BalanceRequest struct {
	Amount      float64                      `json:"amount" binding:"required"`
	Type        model.BalanceTransactionType `json:"type" binding:"omitempty,oneof=topup adjust"`
	Description string                       `json:"description" binding:"max=255"`
}

// AdjustBalance 充值或调整余额，充值金额必须为正
func (s *UserService) AdjustBalance(ctx context.Context, operatorID, userID uint, req BalanceRequest) (*model.User, error) {
	txType := req.Type
	if txType == "" {
		txType = model.BalanceTopUp
	}
	if txType == model.BalanceTopUp && req.Amount <= 0 {
		return nil, fmt.Errorf("%w: top-up amount must be positive", util.ErrValidation)
	}

	user, err := s.UserRepo.AdjustBalance(ctx, userID, req.Amount, txType, req.Description, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, util.ErrUserNotFound
		case errors.Is(err, repository.ErrNegativeBalance):
			return nil, util.ErrInsufficientBalance
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListBalanceTransactions(ctx context.Context, userID uint, page, limit int) ([]model.BalanceTransaction, int64, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.UserRepo.ListBalanceTransactions(ctx, userID, page, limit)
}
