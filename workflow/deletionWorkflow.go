package workflow

import (
	"context"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DeletionPreview tells the caller what a delete would touch before they
// commit to a cascade mode.
type DeletionPreview struct {
	RecurringBillId    int    `json:"recurring_bill_id"`
	BillName           string `json:"bill_name"`
	PendingOccurrences int64  `json:"pending_occurrences"`
	PaidOccurrences    int64  `json:"paid_occurrences"`
	SkippedOccurrences int64  `json:"skipped_occurrences"`
	LinkedTransactions int64  `json:"linked_transactions"`
}

func PreviewBillDeletion(db *gorm.DB, tenantId string, billId int) (*DeletionPreview, error) {

	var bill models.RecurringBill
	if err := db.Where("tenant_id = ?", tenantId).First(&bill, billId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	preview := DeletionPreview{
		RecurringBillId: bill.ID,
		BillName:        bill.Name,
	}

	counts := []struct {
		status models.OccurrenceStatus
		dest   *int64
	}{
		{models.OccurrenceStatusPending, &preview.PendingOccurrences},
		{models.OccurrenceStatusPaid, &preview.PaidOccurrences},
		{models.OccurrenceStatusSkipped, &preview.SkippedOccurrences},
	}
	for _, c := range counts {
		err := db.Model(&models.BillOccurrence{}).
			Where("tenant_id = ? AND recurring_bill_id = ? AND status = ?", tenantId, billId, c.status).
			Count(c.dest).Error
		if err != nil {
			return nil, err
		}
	}

	err := db.Model(&models.Transaction{}).
		Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, billId).
		Count(&preview.LinkedTransactions).Error
	if err != nil {
		return nil, err
	}

	return &preview, nil
}

// DeleteRecurringBill tombstones a bill and cascades per mode:
//
//	pending — remove the bill and its pending occurrences; paid and skipped
//	          occurrences stay readable for history.
//	all     — remove the bill and every occurrence.
//
// Ledger transactions are never deleted in either mode: settled money moved,
// and the books must keep saying so.
func DeleteRecurringBill(ctx context.Context, db *gorm.DB, logger *logrus.Logger, tenantId string, billId int, mode models.DeleteMode) (*DeletionPreview, error) {

	preview, err := PreviewBillDeletion(db, tenantId, billId)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {

		occScope := tx.Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, billId)
		switch mode {
		case models.DeleteModeAll:
			// every occurrence goes
		case models.DeleteModePending:
			occScope = occScope.Where("status = ?", models.OccurrenceStatusPending)
		default:
			return utils.ErrorInvalidState
		}
		if err := occScope.Delete(&models.BillOccurrence{}).Error; err != nil {
			config.LogError(logger, "deletionWorkflow.go", "DeleteRecurringBill", "delete occurrences", billId, err)
			return err
		}

		result := tx.Where("tenant_id = ?", tenantId).Delete(&models.RecurringBill{}, billId)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}

		return models.PublishEvent(ctx, tx, tenantId, models.EventTypeBillDeleted,
			billId, models.EventReferenceTypeBill, map[string]interface{}{
				"recurring_bill_id": billId,
				"mode":              mode,
				"pending_removed":   preview.PendingOccurrences,
			})
	})
	if err != nil {
		return nil, err
	}
	models.InvalidateUpcomingOccurrences(tenantId)
	return preview, nil
}
