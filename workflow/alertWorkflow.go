package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AlertScanReport struct {
	DueSoonEmitted int `json:"due_soon_emitted"`
	OverdueEmitted int `json:"overdue_emitted"`
}

// ScanDueDateAlerts emits due-soon and overdue events for a tenant's pending
// occurrences, honoring each bill's alert settings. Emission goes through the
// outbox, and a per-day idempotency key keeps a rerun of the scan from
// emitting the same alert twice.
func ScanDueDateAlerts(ctx context.Context, db *gorm.DB, logger *logrus.Logger, tenantId string, today time.Time) (*AlertScanReport, error) {

	report := &AlertScanReport{}
	today = utils.TruncateToDay(today)

	var occurrences []*models.BillOccurrence
	err := db.Preload("RecurringBill").
		Where("tenant_id = ? AND status = ?", tenantId, models.OccurrenceStatusPending).
		Where("due_date <= ?", today.AddDate(0, 0, 31)).
		Order("due_date").
		Find(&occurrences).Error
	if err != nil {
		config.LogError(logger, "alertWorkflow.go", "ScanDueDateAlerts", "fetch occurrences", tenantId, err)
		return nil, err
	}

	for _, occurrence := range occurrences {
		bill := occurrence.RecurringBill
		if bill == nil {
			continue
		}
		daysUntilDue := utils.DaysBetween(today, occurrence.DueDate)

		var eventType models.EventType
		switch {
		case daysUntilDue < 0:
			if bill.AlertIfOverdue == nil || !*bill.AlertIfOverdue {
				continue
			}
			eventType = models.EventTypeOccurrenceOverdue
		case daysUntilDue == 0:
			if bill.AlertOnDueDay == nil || !*bill.AlertOnDueDay {
				continue
			}
			eventType = models.EventTypeOccurrenceDueSoon
		case daysUntilDue <= bill.AlertDaysBefore:
			eventType = models.EventTypeOccurrenceDueSoon
		default:
			continue
		}

		occ := occurrence
		requestId := fmt.Sprintf("alert:%s:%d:%s", eventType, occ.ID, today.Format("2006-01-02"))
		err := db.Transaction(func(tx *gorm.DB) error {
			skip, err := BeginIdempotency(tx, tenantId, "DueDateAlert", requestId)
			if err != nil {
				return err
			}
			if skip {
				return nil
			}
			if err := models.PublishEvent(ctx, tx, tenantId, eventType,
				occ.ID, models.EventReferenceTypeOccurrence, map[string]interface{}{
					"occurrence_id":   occ.ID,
					"recurring_bill_id": bill.ID,
					"bill_name":       bill.Name,
					"due_date":        occ.DueDate,
					"days_until_due":  daysUntilDue,
					"amount":          occ.Amount,
				}); err != nil {
				return err
			}
			if err := MarkIdempotencySucceeded(tx, tenantId, "DueDateAlert", requestId); err != nil {
				return err
			}
			if eventType == models.EventTypeOccurrenceOverdue {
				report.OverdueEmitted++
			} else {
				report.DueSoonEmitted++
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrIdempotencyInProgress) {
				continue
			}
			config.LogError(logger, "alertWorkflow.go", "ScanDueDateAlerts", "emit alert", occ.ID, err)
			return nil, err
		}
	}

	return report, nil
}
