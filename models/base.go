package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fynanpro/finance_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishEvent implements the transactional outbox: it writes the event row
// inside the caller's DB transaction but does NOT publish to Pub/Sub.
// Publishing happens asynchronously in the outbox dispatcher after commit,
// so a rolled-back settlement never emits an event.
func PublishEvent(ctx context.Context, tx *gorm.DB, tenantId string, eventType EventType, refId int, refType EventReferenceType, payload interface{}) error {

	var payloadInByte []byte
	var err error

	if payload != nil {
		payloadInByte, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	record := EventRecord{
		TenantId:      tenantId,
		EventType:     eventType,
		ReferenceId:   refId,
		ReferenceType: refType,
		OccurredAt:    time.Now().UTC(),
		Payload:       payloadInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
