package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string                      `gorm:"size:100;not null" json:"name"`
	Email    string                      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string                      `gorm:"size:100;not null" json:"-"`
	Role     UserRole                    `gorm:"size:20;default:'student'" json:"role"`
	Grade    string                      `gorm:"size:50" json:"grade"`
	Balance  float64                     `gorm:"type:decimal(12,2);default:0" json:"balance"`
	Subjects datatypes.JSONSlice[string] `json:"subjects"` // 教师负责的科目
	Avatar   string                      `gorm:"size:255" json:"avatar"`
	Disabled bool                        `gorm:"default:false" json:"disabled"`
	LastSeen *time.Time                  `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

type BalanceTransactionType string

const (
	BalanceTopUp    BalanceTransactionType = "topup"
	BalancePurchase BalanceTransactionType = "purchase"
	BalanceAdjust   BalanceTransactionType = "adjust"
)

// BalanceTransaction 余额流水，金额为正表示充值，为负表示扣款
type BalanceTransaction struct {
	BaseModel
	UserID      uint                   `gorm:"index;not null" json:"userId"`
	Amount      float64                `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type        BalanceTransactionType `gorm:"size:20;not null" json:"type"`
	Description string                 `gorm:"size:255" json:"description"`
	OperatorID  uint                   `gorm:"index" json:"operatorId"`
}

func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}
