package models

import "time"

// EventRecord is a transactional-outbox row. Domain events (settlement,
// skips, deletions, due-date alerts) are written here inside the mutating DB
// transaction; the dispatcher publishes them to Pub/Sub after commit.
type EventRecord struct {
	ID            int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	TenantId      string              `gorm:"size:64;not null;index" json:"tenant_id"`
	EventType     EventType           `gorm:"size:50;not null;index" json:"event_type"`
	ReferenceId   int                 `json:"reference_id"`
	ReferenceType EventReferenceType  `gorm:"type:enum('OCCURRENCE','BILL')" json:"reference_type"`
	OccurredAt    time.Time           `gorm:"index;not null" json:"occurred_at"`
	Payload       []byte              `gorm:"type:blob" json:"payload"`
	PublishStatus OutboxPublishStatus `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt   *time.Time          `gorm:"index" json:"published_at"`
	MessageId     *string             `gorm:"size:255" json:"message_id"`
	Attempts      int                 `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt      *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy      *string             `gorm:"size:100" json:"locked_by"`
	LastError     *string             `gorm:"type:text" json:"last_error"`
	CorrelationId string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}
