package reports

import (
	"context"
	"errors"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/shopspring/decimal"
)

type OccurrenceScheduleRow struct {
	BillName   string          `json:"BillName"`
	BillType   models.BillType `json:"BillType"`
	DueDate    time.Time       `json:"DueDate"`
	Amount     decimal.Decimal `json:"Amount"`
	Status     string          `json:"Status"`
	PaidAmount *decimal.Decimal `json:"PaidAmount,omitempty"`
	PaidDate   *time.Time      `json:"PaidDate,omitempty"`
}

type MonthlyProjectionRow struct {
	Month        string          `json:"Month"`
	TotalIncome  decimal.Decimal `json:"TotalIncome"`
	TotalExpense decimal.Decimal `json:"TotalExpense"`
	NetCashflow  decimal.Decimal `json:"NetCashflow"`
	PendingCount int             `json:"PendingCount"`
}

// GetOccurrenceScheduleReport lists occurrences in a date window, optionally
// restricted to one bill, joined with the bill name for display/export.
func GetOccurrenceScheduleReport(ctx context.Context, recurringBillId *int, fromDate time.Time, toDate time.Time) ([]*OccurrenceScheduleRow, error) {

	sqlT := `
SELECT
    rb.name AS bill_name,
    rb.type AS bill_type,
    o.due_date,
    o.amount,
    o.status,
    o.paid_amount,
    o.paid_date
FROM
    bill_occurrences o
    LEFT JOIN recurring_bills rb ON rb.id = o.recurring_bill_id
WHERE
    o.tenant_id = @tenantId
        AND o.deleted_at IS NULL
        AND o.due_date BETWEEN @fromDate AND @toDate
    {{- if .recurringBillId }} AND o.recurring_bill_id = @recurringBillId {{- end }}
ORDER BY o.due_date, rb.name;
`

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if recurringBillId != nil && *recurringBillId != 0 {
		if err := utils.ValidateResourceId[models.RecurringBill](ctx, tenantId, *recurringBillId); err != nil {
			return nil, errors.New("recurring bill not found")
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"recurringBillId": utils.DereferencePtr(recurringBillId),
	})
	if err != nil {
		return nil, err
	}

	var records []*OccurrenceScheduleRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"tenantId":        tenantId,
		"fromDate":        utils.TruncateToDay(fromDate),
		"toDate":          utils.TruncateToDay(toDate),
		"recurringBillId": recurringBillId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// GetMonthlyProjectionReport aggregates pending occurrences into a per-month
// cashflow projection. Expense occurrences count into total_expense as
// positive magnitudes; net = income - expense.
func GetMonthlyProjectionReport(ctx context.Context, months int) ([]*MonthlyProjectionRow, error) {

	sql := `
SELECT
    DATE_FORMAT(o.due_date, '%Y-%m') AS month,
    SUM(CASE WHEN rb.type = 'income' THEN o.amount ELSE 0 END) AS total_income,
    SUM(CASE WHEN rb.type = 'expense' THEN o.amount ELSE 0 END) AS total_expense,
    SUM(CASE WHEN rb.type = 'income' THEN o.amount ELSE -o.amount END) AS net_cashflow,
    COUNT(o.id) AS pending_count
FROM
    bill_occurrences o
    LEFT JOIN recurring_bills rb ON rb.id = o.recurring_bill_id
WHERE
    o.tenant_id = @tenantId
        AND o.deleted_at IS NULL
        AND o.status = 'pending'
        AND o.due_date BETWEEN @fromDate AND @toDate
GROUP BY DATE_FORMAT(o.due_date, '%Y-%m')
ORDER BY month;
`

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if months <= 0 {
		months = 3
	}
	from := utils.TruncateToDay(time.Now())
	to := from.AddDate(0, months, 0)

	var records []*MonthlyProjectionRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"tenantId": tenantId,
		"fromDate": from,
		"toDate":   to,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
