package models

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BankAccount struct {
	ID             int             `gorm:"primary_key" json:"id"`
	TenantId       string          `gorm:"size:64;index;not null" json:"tenant_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Type           BankAccountType `gorm:"type:enum('checking','savings','wallet','credit_card');default:'checking'" json:"type"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_balance"`
	Color          string          `gorm:"size:16" json:"color"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

type NewBankAccount struct {
	Name           string          `json:"name" binding:"required"`
	Type           BankAccountType `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Color          string          `json:"color"`
}

func CreateBankAccount(ctx context.Context, input *NewBankAccount) (*BankAccount, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	accountType := input.Type
	if accountType == "" {
		accountType = BankAccountTypeChecking
	}

	account := BankAccount{
		TenantId:       tenantId,
		Name:           input.Name,
		Type:           accountType,
		CurrentBalance: input.InitialBalance,
		InitialBalance: input.InitialBalance,
		Color:          input.Color,
		IsActive:       utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func GetBankAccount(ctx context.Context, id int) (*BankAccount, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[BankAccount](ctx, tenantId, id)
}

func GetBankAccounts(ctx context.Context) ([]*BankAccount, error) {
	db := config.GetDB()
	var results []*BankAccount

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ApplyBalanceDelta adjusts current_balance in place with an atomic
// UPDATE ... SET current_balance = current_balance + ?. Callers pass the
// signed transaction amount, so expense settlement subtracts and income
// settlement adds without a read-modify-write race.
func ApplyBalanceDelta(tx *gorm.DB, tenantId string, accountId int, delta decimal.Decimal) error {
	result := tx.Model(&BankAccount{}).
		Where("tenant_id = ? AND id = ?", tenantId, accountId).
		Update("current_balance", gorm.Expr("current_balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
