package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SignedAmount converts a bill amount (always stored as a positive magnitude)
// into the ledger's signed convention: expenses negative, income positive.
func SignedAmount(billType models.BillType, amount decimal.Decimal) decimal.Decimal {
	magnitude := amount.Abs()
	if billType == models.BillTypeExpense {
		return magnitude.Neg()
	}
	return magnitude
}

// SettlementMetrics derives the early/late payment fields from due and paid
// dates. Same-day payment is neither early nor late and carries no day count.
// Pure; DB-free.
func SettlementMetrics(dueDate, paidDate time.Time) (isPaidEarly *bool, isPaidLate *bool, daysEarlyLate *int) {
	diffDays := utils.DaysBetween(dueDate, paidDate)

	early := diffDays < 0
	late := diffDays > 0
	isPaidEarly = &early
	isPaidLate = &late
	if diffDays != 0 {
		days := diffDays
		if days < 0 {
			days = -days
		}
		daysEarlyLate = &days
	}
	return isPaidEarly, isPaidLate, daysEarlyLate
}

type SettleOccurrenceInput struct {
	OccurrenceId    int
	PaidAmount      *decimal.Decimal
	PaidDate        time.Time
	BankAccountId   *int
	PaymentMethodId *int
	Notes           string
	RequestId       string
}

// SettleOccurrence marks a pending occurrence paid and posts the matching
// ledger entry plus the balance adjustment, all in one DB transaction:
// either all three writes land or none do. The occurrence claim is a
// conditional UPDATE on status, so two concurrent settlements of the same
// occurrence cannot both succeed.
func SettleOccurrence(ctx context.Context, db *gorm.DB, logger *logrus.Logger, tenantId string, input SettleOccurrenceInput) (*models.BillOccurrence, error) {

	var settled *models.BillOccurrence

	err := db.Transaction(func(tx *gorm.DB) error {

		if input.RequestId != "" {
			skip, err := BeginIdempotency(tx, tenantId, "SettleOccurrence", input.RequestId)
			if err != nil {
				return err
			}
			if skip {
				// already settled by an earlier retry of this request
				var existing models.BillOccurrence
				if err := tx.Where("tenant_id = ?", tenantId).
					First(&existing, input.OccurrenceId).Error; err != nil {
					return utils.ErrorRecordNotFound
				}
				settled = &existing
				return nil
			}
		}

		var occurrence models.BillOccurrence
		err := tx.Preload("RecurringBill").
			Where("tenant_id = ?", tenantId).
			First(&occurrence, input.OccurrenceId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}
		if occurrence.RecurringBill == nil {
			return utils.ErrorConsistencyViolation
		}
		bill := occurrence.RecurringBill
		if bill.Status == models.BillStatusCancelled {
			return utils.ErrorInvalidState
		}

		paidAmount := occurrence.Amount
		if input.PaidAmount != nil {
			paidAmount = input.PaidAmount.Abs()
		}
		if bill.IsVariableAmount != nil && *bill.IsVariableAmount && input.PaidAmount == nil {
			return errors.New("paid amount is required for variable-amount bills")
		}
		if !paidAmount.IsPositive() {
			return errors.New("paid amount must be greater than zero")
		}

		bankAccountId := bill.BankAccountId
		if input.BankAccountId != nil {
			bankAccountId = *input.BankAccountId
		}
		if bankAccountId == 0 {
			return errors.New("bank account is required")
		}
		paymentMethodId := bill.PaymentMethodId
		if input.PaymentMethodId != nil {
			paymentMethodId = *input.PaymentMethodId
		}

		paidDate := utils.TruncateToDay(input.PaidDate)
		dueDate := utils.TruncateToDay(occurrence.DueDate)
		isPaidEarly, isPaidLate, daysEarlyLate := SettlementMetrics(occurrence.DueDate, paidDate)
		signedAmount := SignedAmount(bill.Type, paidAmount)

		// replay guard: a completed entry for this (bill, due date, amount)
		// may already exist without a linking occurrence (an earlier retry
		// or legacy half-settled data). Adopt it instead of posting again.
		matched, err := models.FindUnlinkedBillTransaction(tx, tenantId, bill.ID, dueDate, signedAmount)
		if err != nil {
			return err
		}

		transactionId := 0
		if matched != nil {
			transactionId = matched.ID
		} else {
			// ledger entry: transaction_date carries the due date so monthly
			// reports bucket the charge in its obligation month
			transaction := models.Transaction{
				TenantId:        tenantId,
				Description:     bill.Name,
				Amount:          signedAmount,
				Type:            models.TransactionType(bill.Type),
				Status:          models.TransactionStatusCompleted,
				TransactionDate: dueDate,
				PaidDate:        &paidDate,
				CategoryId:      bill.CategoryId,
				BankAccountId:   bankAccountId,
				PaymentMethodId: paymentMethodId,
				IsRecurring:     utils.NewTrue(),
				RecurringBillId: &bill.ID,
				IsPaidEarly:     isPaidEarly,
				IsPaidLate:      isPaidLate,
				DaysEarlyLate:   daysEarlyLate,
				Notes:           input.Notes,
			}
			if err := tx.Create(&transaction).Error; err != nil {
				config.LogError(logger, "settlementWorkflow.go", "SettleOccurrence", "create transaction", transaction, err)
				return err
			}
			transactionId = transaction.ID
		}

		// claim the occurrence; zero rows means someone settled or skipped it first
		claim := tx.Model(&models.BillOccurrence{}).
			Where("id = ? AND tenant_id = ? AND status = ?",
				occurrence.ID, tenantId, models.OccurrenceStatusPending).
			Updates(map[string]interface{}{
				"status":         models.OccurrenceStatusPaid,
				"paid_amount":    paidAmount,
				"paid_date":      paidDate,
				"transaction_id": transactionId,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return utils.ErrorAlreadySettled
		}

		// the adopted entry moved the balance when it was first posted
		if matched == nil {
			if err := models.ApplyBalanceDelta(tx, tenantId, bankAccountId, signedAmount); err != nil {
				config.LogError(logger, "settlementWorkflow.go", "SettleOccurrence", "ApplyBalanceDelta", bankAccountId, err)
				return err
			}
		}

		if err := models.PublishEvent(ctx, tx, tenantId, models.EventTypeOccurrenceSettled,
			occurrence.ID, models.EventReferenceTypeOccurrence, map[string]interface{}{
				"occurrence_id":   occurrence.ID,
				"recurring_bill_id": bill.ID,
				"transaction_id":  transactionId,
				"paid_amount":     paidAmount,
				"paid_date":       paidDate,
			}); err != nil {
			return err
		}

		// keep the schedule topped up after each settlement
		if bill.AutoGenerate != nil && *bill.AutoGenerate {
			if _, _, err := GenerateOccurrences(tx, logger, bill, time.Now()); err != nil {
				return err
			}
		}

		if input.RequestId != "" {
			if err := MarkIdempotencySucceeded(tx, tenantId, "SettleOccurrence", input.RequestId); err != nil {
				return err
			}
		}

		occurrence.Status = models.OccurrenceStatusPaid
		occurrence.PaidAmount = &paidAmount
		occurrence.PaidDate = &paidDate
		occurrence.TransactionId = &transactionId
		settled = &occurrence
		return nil
	})
	if err != nil {
		if input.RequestId != "" && !errors.Is(err, ErrIdempotencyInProgress) {
			if markErr := MarkIdempotencyFailed(db, tenantId, "SettleOccurrence", input.RequestId, err); markErr != nil {
				config.LogError(logger, "settlementWorkflow.go", "SettleOccurrence", "MarkIdempotencyFailed", input.RequestId, markErr)
			}
		}
		return nil, err
	}
	models.InvalidateUpcomingOccurrences(tenantId)
	return settled, nil
}

// SkipOccurrence marks a pending occurrence skipped. No ledger entry and no
// balance change; the slot simply stops counting as upcoming.
func SkipOccurrence(ctx context.Context, db *gorm.DB, logger *logrus.Logger, tenantId string, occurrenceId int, notes string) (*models.BillOccurrence, error) {

	var skipped *models.BillOccurrence

	err := db.Transaction(func(tx *gorm.DB) error {
		var occurrence models.BillOccurrence
		err := tx.Where("tenant_id = ?", tenantId).First(&occurrence, occurrenceId).Error
		if err != nil {
			return utils.ErrorRecordNotFound
		}

		claim := tx.Model(&models.BillOccurrence{}).
			Where("id = ? AND tenant_id = ? AND status = ?",
				occurrence.ID, tenantId, models.OccurrenceStatusPending).
			Updates(map[string]interface{}{
				"status": models.OccurrenceStatusSkipped,
				"notes":  notes,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return utils.ErrorInvalidState
		}

		if err := models.PublishEvent(ctx, tx, tenantId, models.EventTypeOccurrenceSkipped,
			occurrence.ID, models.EventReferenceTypeOccurrence, map[string]interface{}{
				"occurrence_id":   occurrence.ID,
				"recurring_bill_id": occurrence.RecurringBillId,
			}); err != nil {
			return err
		}

		occurrence.Status = models.OccurrenceStatusSkipped
		occurrence.Notes = notes
		skipped = &occurrence
		return nil
	})
	if err != nil {
		config.LogError(logger, "settlementWorkflow.go", "SkipOccurrence", "transaction", occurrenceId, err)
		return nil, err
	}
	models.InvalidateUpcomingOccurrences(tenantId)
	return skipped, nil
}
