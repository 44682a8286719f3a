package workflow

import (
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NextDueDate advances one period from the given due date. Monthly and yearly
// steps re-anchor on the bill's due day so a clamped date (Feb 28 for day 31)
// springs back in longer months.
func NextDueDate(from time.Time, frequency models.BillFrequency, dueDay int) time.Time {
	switch frequency {
	case models.BillFrequencyDaily:
		return from.AddDate(0, 0, 1)
	case models.BillFrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.BillFrequencyYearly:
		return utils.AddMonthsClamped(from, 12, dueDay)
	default:
		return utils.AddMonthsClamped(from, 1, dueDay)
	}
}

// FirstDueDate resolves the schedule anchor for a bill that has no occurrences
// yet: the configured first due date when present, otherwise the due day in
// the current month, rolled to next month when that day has already passed.
func FirstDueDate(firstDueDate *time.Time, dueDay int, today time.Time) time.Time {
	if firstDueDate != nil {
		return utils.TruncateToDay(*firstDueDate)
	}
	today = utils.TruncateToDay(today)
	candidate := utils.ClampDayToMonth(today.Year(), today.Month(), dueDay)
	if candidate.Before(today) {
		candidate = utils.AddMonthsClamped(candidate, 1, dueDay)
	}
	return candidate
}

// ScheduleDueDates computes the due dates to generate for a bill: starting one
// period after lastDueDate (or at the anchor when nil), up to and including
// the horizon. Pure; DB-free.
func ScheduleDueDates(frequency models.BillFrequency, dueDay int, firstDueDate *time.Time, lastDueDate *time.Time, today time.Time, horizon time.Time) []time.Time {

	var next time.Time
	if lastDueDate != nil {
		next = NextDueDate(utils.TruncateToDay(*lastDueDate), frequency, dueDay)
	} else {
		next = FirstDueDate(firstDueDate, dueDay, today)
	}

	horizon = utils.TruncateToDay(horizon)
	var dates []time.Time
	for !next.After(horizon) {
		dates = append(dates, next)
		next = NextDueDate(next, frequency, dueDay)
	}
	return dates
}

// GenerateOccurrences extends a bill's occurrence schedule up to monthsAhead
// from today. Idempotent: the anchor is the last existing occurrence
// (tombstoned ones included), and the (recurring_bill_id, due_date) unique
// index rejects any concurrent double insert. Returns the created occurrences
// and the number of schedule dates skipped because they already existed.
func GenerateOccurrences(tx *gorm.DB, logger *logrus.Logger, bill *models.RecurringBill, today time.Time) ([]*models.BillOccurrence, int, error) {

	if bill.Status != models.BillStatusActive {
		return nil, 0, nil
	}

	lastDueDate, err := models.LastOccurrenceDueDate(tx, bill.ID)
	if err != nil {
		config.LogError(logger, "occurrenceWorkflow.go", "GenerateOccurrences", "LastOccurrenceDueDate", bill.ID, err)
		return nil, 0, err
	}

	monthsAhead := bill.MonthsAhead
	if monthsAhead <= 0 {
		monthsAhead = 3
	}
	horizon := utils.TruncateToDay(today).AddDate(0, monthsAhead, 0)

	dueDates := ScheduleDueDates(bill.Frequency, bill.DueDay, bill.FirstDueDate, lastDueDate, today, horizon)
	if len(dueDates) == 0 {
		return nil, 0, nil
	}

	amount := bill.EffectiveAmount()
	created := make([]*models.BillOccurrence, 0, len(dueDates))
	skipped := 0
	for _, dueDate := range dueDates {
		occurrence := models.BillOccurrence{
			TenantId:        bill.TenantId,
			RecurringBillId: bill.ID,
			DueDate:         dueDate,
			Amount:          amount,
			Status:          models.OccurrenceStatusPending,
		}
		if err := tx.Create(&occurrence).Error; err != nil {
			if isDuplicateKeyErr(err) {
				// another writer got there first; the schedule already holds this date
				skipped++
				continue
			}
			config.LogError(logger, "occurrenceWorkflow.go", "GenerateOccurrences", "Create occurrence", occurrence, err)
			return nil, 0, err
		}
		created = append(created, &occurrence)
	}

	return created, skipped, nil
}

// GenerateOccurrencesForTenant runs generation for every active auto-generate
// bill of a tenant, inside one posting lock. Returns the number of
// occurrences created and the number skipped as already present.
func GenerateOccurrencesForTenant(db *gorm.DB, logger *logrus.Logger, tenantId string, today time.Time) (int, int, error) {

	var bills []*models.RecurringBill
	err := db.
		Where("tenant_id = ? AND status = ? AND auto_generate = ? AND is_template = ?",
			tenantId, models.BillStatusActive, true, false).
		Find(&bills).Error
	if err != nil {
		config.LogError(logger, "occurrenceWorkflow.go", "GenerateOccurrencesForTenant", "fetch bills", tenantId, err)
		return 0, 0, err
	}

	totalCreated, totalSkipped := 0, 0
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := AcquireTenantPostingLock(tx, tenantId); err != nil {
			return err
		}
		defer ReleaseTenantPostingLock(tx, tenantId)

		for _, bill := range bills {
			created, skipped, err := GenerateOccurrences(tx, logger, bill, today)
			if err != nil {
				return err
			}
			totalCreated += len(created)
			totalSkipped += skipped
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if totalCreated > 0 {
		models.InvalidateUpcomingOccurrences(tenantId)
	}
	return totalCreated, totalSkipped, nil
}
