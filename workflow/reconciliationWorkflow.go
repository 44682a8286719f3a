package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type BackfillReport struct {
	Examined int `json:"examined"`
	Repaired int `json:"repaired"`
	Linked   int `json:"linked"`
	Skipped  int `json:"skipped"`
}

// BackfillMissingTransactions repairs paid occurrences whose ledger entry is
// missing: occurrences that were settled but never got a transaction row, or
// whose transaction was lost. When a matching completed entry for the same
// (bill, due date, amount) already exists unlinked, the occurrence is linked
// to it; only a truly absent entry is recreated from the paid snapshot, with
// the balance delta re-applied once.
func BackfillMissingTransactions(db *gorm.DB, logger *logrus.Logger, tenantId string, dryRun bool) (*BackfillReport, error) {

	report := &BackfillReport{}

	var orphans []*models.BillOccurrence
	err := db.Preload("RecurringBill").
		Joins("LEFT JOIN transactions t ON t.id = bill_occurrences.transaction_id AND t.deleted_at IS NULL").
		Where("bill_occurrences.tenant_id = ? AND bill_occurrences.status = ?", tenantId, models.OccurrenceStatusPaid).
		Where("bill_occurrences.transaction_id IS NULL OR t.id IS NULL").
		Find(&orphans).Error
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "BackfillMissingTransactions", "fetch orphans", tenantId, err)
		return nil, err
	}
	report.Examined = len(orphans)

	if dryRun {
		report.Skipped = len(orphans)
		return report, nil
	}

	for _, occurrence := range orphans {
		if occurrence.RecurringBill == nil || occurrence.PaidDate == nil {
			report.Skipped++
			continue
		}
		bill := occurrence.RecurringBill

		paidAmount := occurrence.Amount
		if occurrence.PaidAmount != nil {
			paidAmount = *occurrence.PaidAmount
		}
		paidDate := *occurrence.PaidDate
		isPaidEarly, isPaidLate, daysEarlyLate := SettlementMetrics(occurrence.DueDate, paidDate)
		signedAmount := SignedAmount(bill.Type, paidAmount)

		occ := occurrence

		// an entry matching (bill, due date, amount) may already exist but
		// was never linked; link it instead of posting a duplicate
		matched, err := models.FindUnlinkedBillTransaction(db, tenantId, bill.ID, occ.DueDate, signedAmount)
		if err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "BackfillMissingTransactions", "match transaction", occ.ID, err)
			report.Skipped++
			continue
		}
		if matched != nil {
			err := db.Model(&models.BillOccurrence{}).
				Where("id = ?", occ.ID).
				Update("transaction_id", matched.ID).Error
			if err != nil {
				config.LogError(logger, "reconciliationWorkflow.go", "BackfillMissingTransactions", "link occurrence", occ.ID, err)
				report.Skipped++
				continue
			}
			report.Linked++
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			transaction := models.Transaction{
				TenantId:        tenantId,
				Description:     bill.Name,
				Amount:          signedAmount,
				Type:            models.TransactionType(bill.Type),
				Status:          models.TransactionStatusCompleted,
				TransactionDate: utils.TruncateToDay(occ.DueDate),
				PaidDate:        &paidDate,
				CategoryId:      bill.CategoryId,
				BankAccountId:   bill.BankAccountId,
				PaymentMethodId: bill.PaymentMethodId,
				IsRecurring:     utils.NewTrue(),
				RecurringBillId: &bill.ID,
				IsPaidEarly:     isPaidEarly,
				IsPaidLate:      isPaidLate,
				DaysEarlyLate:   daysEarlyLate,
			}
			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.BillOccurrence{}).
				Where("id = ?", occ.ID).
				Update("transaction_id", transaction.ID).Error; err != nil {
				return err
			}
			return models.ApplyBalanceDelta(tx, tenantId, bill.BankAccountId, transaction.Amount)
		})
		if err != nil {
			config.LogError(logger, "reconciliationWorkflow.go", "BackfillMissingTransactions", "repair occurrence", occ.ID, err)
			report.Skipped++
			continue
		}
		report.Repaired++
	}

	return report, nil
}

type RegenerationReport struct {
	BillsExamined      int `json:"bills_examined"`
	OccurrencesCreated int `json:"occurrences_created"`
	OccurrencesSkipped int `json:"occurrences_skipped"`
}

// RegenerateMissingOccurrences walks each active bill's expected schedule from
// its anchor to the generation horizon and inserts any missing occurrence.
// Soft-deleted occurrences stay deleted: the unique index covers tombstoned
// rows, so regeneration cannot resurrect dates the user removed.
func RegenerateMissingOccurrences(db *gorm.DB, logger *logrus.Logger, tenantId string, today time.Time, dryRun bool) (*RegenerationReport, error) {

	report := &RegenerationReport{}

	var bills []*models.RecurringBill
	err := db.
		Where("tenant_id = ? AND status = ? AND is_template = ?",
			tenantId, models.BillStatusActive, false).
		Find(&bills).Error
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "RegenerateMissingOccurrences", "fetch bills", tenantId, err)
		return nil, err
	}
	report.BillsExamined = len(bills)

	for _, bill := range bills {
		monthsAhead := bill.MonthsAhead
		if monthsAhead <= 0 {
			monthsAhead = 3
		}
		horizon := utils.TruncateToDay(today).AddDate(0, monthsAhead, 0)

		// full expected schedule from the anchor, not just past the last row
		dueDates := ScheduleDueDates(bill.Frequency, bill.DueDay, bill.FirstDueDate, nil, today, horizon)
		amount := bill.EffectiveAmount()

		for _, dueDate := range dueDates {
			var count int64
			err := db.Unscoped().Model(&models.BillOccurrence{}).
				Where("recurring_bill_id = ? AND due_date = ?", bill.ID, dueDate).
				Count(&count).Error
			if err != nil {
				return nil, err
			}
			if count > 0 {
				report.OccurrencesSkipped++
				continue
			}
			if dryRun {
				report.OccurrencesCreated++
				continue
			}
			occurrence := models.BillOccurrence{
				TenantId:        tenantId,
				RecurringBillId: bill.ID,
				DueDate:         dueDate,
				Amount:          amount,
				Status:          models.OccurrenceStatusPending,
			}
			if err := db.Create(&occurrence).Error; err != nil {
				if isDuplicateKeyErr(err) {
					report.OccurrencesSkipped++
					continue
				}
				config.LogError(logger, "reconciliationWorkflow.go", "RegenerateMissingOccurrences", "create occurrence", occurrence, err)
				return nil, err
			}
			report.OccurrencesCreated++
		}
	}

	if !dryRun && report.OccurrencesCreated > 0 {
		models.InvalidateUpcomingOccurrences(tenantId)
	}
	return report, nil
}

// ReverseSettlement reopens a paid occurrence: tombstones the ledger entry,
// reverses the balance delta and resets the occurrence to pending. Gated by
// the ALLOW_SETTLEMENT_REVERSAL flag.
func ReverseSettlement(ctx context.Context, db *gorm.DB, logger *logrus.Logger, tenantId string, occurrenceId int) (*models.BillOccurrence, error) {

	if !config.SettlementReversalEnabled() {
		return nil, errors.New("settlement reversal is disabled")
	}

	var reopened *models.BillOccurrence

	err := db.Transaction(func(tx *gorm.DB) error {
		var occurrence models.BillOccurrence
		err := tx.Where("tenant_id = ?", tenantId).First(&occurrence, occurrenceId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}
		if occurrence.Status != models.OccurrenceStatusPaid {
			return utils.ErrorInvalidState
		}
		if occurrence.TransactionId == nil {
			return utils.ErrorConsistencyViolation
		}

		var transaction models.Transaction
		err = tx.Where("tenant_id = ?", tenantId).First(&transaction, *occurrence.TransactionId).Error
		if err != nil {
			return utils.ErrorConsistencyViolation
		}

		if err := tx.Delete(&transaction).Error; err != nil {
			return err
		}
		if err := models.ApplyBalanceDelta(tx, tenantId, transaction.BankAccountId, transaction.Amount.Neg()); err != nil {
			return err
		}

		claim := tx.Model(&models.BillOccurrence{}).
			Where("id = ? AND status = ?", occurrence.ID, models.OccurrenceStatusPaid).
			Updates(map[string]interface{}{
				"status":         models.OccurrenceStatusPending,
				"paid_amount":    nil,
				"paid_date":      nil,
				"transaction_id": nil,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return utils.ErrorInvalidState
		}

		if err := models.PublishEvent(ctx, tx, tenantId, models.EventTypeOccurrenceReopened,
			occurrence.ID, models.EventReferenceTypeOccurrence, map[string]interface{}{
				"occurrence_id":  occurrence.ID,
				"transaction_id": transaction.ID,
			}); err != nil {
			return err
		}

		occurrence.Status = models.OccurrenceStatusPending
		occurrence.PaidAmount = nil
		occurrence.PaidDate = nil
		occurrence.TransactionId = nil
		reopened = &occurrence
		return nil
	})
	if err != nil {
		config.LogError(logger, "reconciliationWorkflow.go", "ReverseSettlement", "transaction", occurrenceId, err)
		return nil, err
	}
	models.InvalidateUpcomingOccurrences(tenantId)
	return reopened, nil
}
