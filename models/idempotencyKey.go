package models

import "time"

// IdempotencyKey provides durable, DB-backed idempotency for settlement and
// other side-effecting operations. Unique constraint:
// (tenant_id, operation_name, request_id).
type IdempotencyKey struct {
	ID            int               `gorm:"primary_key" json:"id"`
	TenantId      string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"tenant_id"`
	OperationName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"operation_name"`
	RequestId     string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"request_id"`
	Status        IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	LastError     *string           `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
