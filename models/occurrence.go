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

// BillOccurrence is one concrete due instance of a recurring bill
// ("the December charge"). The (recurring_bill_id, due_date) unique index is
// what makes generation idempotent: a second generation pass over the same
// window inserts nothing.
type BillOccurrence struct {
	ID              int              `gorm:"primary_key" json:"id"`
	TenantId        string           `gorm:"size:64;index;not null" json:"tenant_id"`
	RecurringBillId int              `gorm:"not null;uniqueIndex:idx_occurrence_bill_due,priority:1" json:"recurring_bill_id"`
	RecurringBill   *RecurringBill   `json:"recurring_bill,omitempty"`
	DueDate         time.Time        `gorm:"type:date;not null;uniqueIndex:idx_occurrence_bill_due,priority:2;index" json:"due_date"`
	Amount          decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status          OccurrenceStatus `gorm:"type:enum('pending','paid','skipped');default:'pending';index" json:"status"`
	PaidAmount      *decimal.Decimal `gorm:"type:decimal(20,4)" json:"paid_amount"`
	PaidDate        *time.Time       `gorm:"type:date" json:"paid_date"`
	TransactionId   *int             `gorm:"index" json:"transaction_id"`
	Notes           string           `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (o BillOccurrence) GetId() int {
	return o.ID
}

func (o BillOccurrence) GetCursor() string {
	return o.DueDate.Format("2006-01-02")
}

func (o *BillOccurrence) IsPending() bool {
	return o.Status == OccurrenceStatusPending
}

func GetBillOccurrence(ctx context.Context, id int) (*BillOccurrence, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[BillOccurrence](ctx, tenantId, id, "RecurringBill")
}

type OccurrenceFilter struct {
	RecurringBillId *int
	Status          *OccurrenceStatus
	FromDate        *time.Time
	ToDate          *time.Time
}

func GetBillOccurrences(ctx context.Context, filter OccurrenceFilter) ([]*BillOccurrence, error) {
	db := config.GetDB()
	var results []*BillOccurrence

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if filter.RecurringBillId != nil {
		dbCtx = dbCtx.Where("recurring_bill_id = ?", *filter.RecurringBillId)
	}
	if filter.Status != nil && *filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("due_date >= ?", utils.TruncateToDay(*filter.FromDate))
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("due_date <= ?", utils.TruncateToDay(*filter.ToDate))
	}

	if err := dbCtx.Order("due_date").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// upcomingCache holds the default-horizon upcoming view per tenant. Writers
// that change the schedule (settlement, skip, generation, deletion, reversal)
// invalidate it explicitly; a cold Redis degrades to a plain query.
var upcomingCache = config.NewCache("upcoming-occurrences", 5*time.Minute)

const upcomingCacheDays = 30

// GetUpcomingOccurrences lists pending occurrences due within the next n days,
// overdue ones included. The default 30-day view is served from the
// per-tenant cache.
func GetUpcomingOccurrences(ctx context.Context, days int) ([]*BillOccurrence, error) {
	db := config.GetDB()
	var results []*BillOccurrence

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	useCache := days == upcomingCacheDays
	if useCache {
		var cached []*BillOccurrence
		if hit, err := upcomingCache.Get(tenantId, &cached); err == nil && hit {
			return cached, nil
		}
	}

	horizon := utils.TruncateToDay(time.Now()).AddDate(0, 0, days)
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND due_date <= ?",
			tenantId, OccurrenceStatusPending, horizon).
		Order("due_date").
		Preload("RecurringBill").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	if useCache {
		_ = upcomingCache.Set(tenantId, results)
	}
	return results, nil
}

// InvalidateUpcomingOccurrences drops a tenant's cached upcoming view. Call
// after any write that changes which occurrences are pending.
func InvalidateUpcomingOccurrences(tenantId string) {
	_ = upcomingCache.Invalidate(tenantId)
}

// last generated occurrence for a bill, soft-deleted rows included:
// a deleted occurrence still anchors the schedule so regeneration does not
// resurrect dates the user removed.
func LastOccurrenceDueDate(tx *gorm.DB, recurringBillId int) (*time.Time, error) {
	var occurrence BillOccurrence
	err := tx.Unscoped().
		Where("recurring_bill_id = ?", recurringBillId).
		Order("due_date DESC").
		First(&occurrence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	due := occurrence.DueDate
	return &due, nil
}
