package models

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/utils"
	"gorm.io/gorm"
)

type Category struct {
	ID        int            `gorm:"primary_key" json:"id"`
	TenantId  string         `gorm:"size:64;index;not null" json:"tenant_id"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	Type      BillType       `gorm:"type:enum('income','expense');not null" json:"type"`
	Icon      string         `gorm:"size:32" json:"icon"`
	Color     string         `gorm:"size:16" json:"color"`
	IsActive  *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type NewCategory struct {
	Name  string   `json:"name" binding:"required"`
	Type  BillType `json:"type" binding:"required,oneof=income expense"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := utils.ValidateUnique[Category](ctx, tenantId, "name", input.Name, 0); err != nil {
		return nil, errors.New("category name already exists")
	}

	category := Category{
		TenantId: tenantId,
		Name:     input.Name,
		Type:     input.Type,
		Icon:     input.Icon,
		Color:    input.Color,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	db := config.GetDB()
	var results []*Category

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("type, name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
