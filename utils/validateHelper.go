package utils

import (
	"context"
	"errors"

	"github.com/fynanpro/finance_backend/config"
)

// check if id exists, using tenant_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, tenantId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, tenantId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ResourceCountWhere[T any](ctx context.Context, tenantId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("tenant_id = ?", tenantId).
		Where(cond, values...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ValidateUnique rejects a value already used by another record of the same
// tenant (excludeId = 0 for create).
func ValidateUnique[T any](ctx context.Context, tenantId string, column string, value interface{}, excludeId int) error {
	db := config.GetDB()
	var model T
	var count int64
	dbCtx := db.WithContext(ctx).Model(&model).
		Where("tenant_id = ?", tenantId).
		Where(column+" = ?", value)
	if excludeId > 0 {
		dbCtx = dbCtx.Where("id <> ?", excludeId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New(column + " already in use")
	}
	return nil
}
