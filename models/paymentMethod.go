package models

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/utils"
	"gorm.io/gorm"
)

type PaymentMethod struct {
	ID        int            `gorm:"primary_key" json:"id"`
	TenantId  string         `gorm:"size:64;index;not null" json:"tenant_id"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type NewPaymentMethod struct {
	Name string `json:"name" binding:"required"`
}

func CreatePaymentMethod(ctx context.Context, input *NewPaymentMethod) (*PaymentMethod, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := utils.ValidateUnique[PaymentMethod](ctx, tenantId, "name", input.Name, 0); err != nil {
		return nil, errors.New("payment method name already exists")
	}

	method := PaymentMethod{
		TenantId: tenantId,
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func GetPaymentMethods(ctx context.Context) ([]*PaymentMethod, error) {
	db := config.GetDB()
	var results []*PaymentMethod

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
