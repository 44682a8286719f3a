package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireTenantPostingLock serializes settlement and generation per tenant
// across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireTenantPostingLock(tx *gorm.DB, tenantId string) error {
	lockName := fmt.Sprintf("posting:%s", tenantId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for tenant_id=%s", tenantId)
	}
	return nil
}

func ReleaseTenantPostingLock(tx *gorm.DB, tenantId string) {
	lockName := fmt.Sprintf("posting:%s", tenantId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
