package models_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// End-to-end settlement flow against a real MySQL + Redis.
//
// Usage (requires a disposable test database — the schema is migrated in place):
//
//	INTEGRATION_TESTS=1 DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... \
//	  DB_NAME=finance_test REDIS_ADDRESS=127.0.0.1:6379 \
//	  go test ./models -run SettlementFlow -v
func TestSettlementFlow(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires MySQL + Redis)")
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}
	logger := logrus.New()

	tenantId := "test-tenant-" + time.Now().Format("20060102150405")
	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)
	ctx = utils.SetUserIdInContext(ctx, 1)

	account, err := models.CreateBankAccount(ctx, &models.NewBankAccount{
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	amount := decimal.NewFromFloat(119.00)
	firstDue := time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)
	bill, err := models.CreateRecurringBill(ctx, &models.NewRecurringBill{
		Name:          "Energy bill",
		Type:          models.BillTypeExpense,
		Amount:        &amount,
		BankAccountId: account.ID,
		Frequency:     models.BillFrequencyMonthly,
		DueDay:        20,
		FirstDueDate:  &firstDue,
	})
	if err != nil {
		t.Fatalf("CreateRecurringBill: %v", err)
	}

	// Generate the schedule. Rerunning must not duplicate occurrences.
	today := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	created, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today)
	if err != nil {
		t.Fatalf("GenerateOccurrencesForTenant: %v", err)
	}
	if created == 0 {
		t.Fatalf("expected occurrences to be generated")
	}
	again, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today)
	if err != nil {
		t.Fatalf("GenerateOccurrencesForTenant rerun: %v", err)
	}
	if again != 0 {
		t.Fatalf("rerun generated %d duplicate occurrences", again)
	}

	var first models.BillOccurrence
	if err := db.Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, bill.ID).
		Order("due_date ASC").First(&first).Error; err != nil {
		t.Fatalf("fetch first occurrence: %v", err)
	}
	if !first.DueDate.Equal(firstDue) {
		t.Fatalf("first due date expected %s, got %s", firstDue, first.DueDate)
	}

	// The upcoming view (default horizon is served from the redis cache)
	// must drop a settled occurrence immediately.
	upcomingBefore, err := models.GetUpcomingOccurrences(ctx, 30)
	if err != nil {
		t.Fatalf("GetUpcomingOccurrences: %v", err)
	}
	if len(upcomingBefore) == 0 {
		t.Fatalf("expected pending occurrences in the upcoming view")
	}

	// Settle two days early.
	paidDate := time.Date(2025, time.December, 18, 0, 0, 0, 0, time.UTC)
	settled, err := workflow.SettleOccurrence(ctx, db, logger, tenantId, workflow.SettleOccurrenceInput{
		OccurrenceId: first.ID,
		PaidDate:     paidDate,
		RequestId:    "settle-1",
	})
	if err != nil {
		t.Fatalf("SettleOccurrence: %v", err)
	}
	if settled.Status != models.OccurrenceStatusPaid {
		t.Fatalf("occurrence status expected paid, got %s", settled.Status)
	}
	if settled.TransactionId == nil {
		t.Fatalf("settled occurrence must link its transaction")
	}

	upcomingAfter, err := models.GetUpcomingOccurrences(ctx, 30)
	if err != nil {
		t.Fatalf("GetUpcomingOccurrences after settle: %v", err)
	}
	for _, o := range upcomingAfter {
		if o.ID == settled.ID {
			t.Fatalf("settled occurrence %d still in the upcoming view; cache not invalidated", settled.ID)
		}
	}

	var txn models.Transaction
	if err := db.First(&txn, *settled.TransactionId).Error; err != nil {
		t.Fatalf("fetch transaction: %v", err)
	}
	if !txn.Amount.Equal(amount.Neg()) {
		t.Fatalf("expense amount expected %s, got %s", amount.Neg(), txn.Amount)
	}
	if !txn.TransactionDate.Equal(firstDue) {
		t.Fatalf("transaction_date must carry the due date, got %s", txn.TransactionDate)
	}
	if txn.IsPaidEarly == nil || !*txn.IsPaidEarly {
		t.Fatalf("expected is_paid_early=true")
	}
	if txn.DaysEarlyLate == nil || *txn.DaysEarlyLate != 2 {
		t.Fatalf("expected days_early_late=2, got %v", txn.DaysEarlyLate)
	}

	var acct models.BankAccount
	if err := db.First(&acct, account.ID).Error; err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	want := decimal.NewFromInt(1000).Sub(amount)
	if !acct.CurrentBalance.Equal(want) {
		t.Fatalf("balance expected %s, got %s", want, acct.CurrentBalance)
	}

	// A second settle of the same occurrence must be rejected.
	_, err = workflow.SettleOccurrence(ctx, db, logger, tenantId, workflow.SettleOccurrenceInput{
		OccurrenceId: first.ID,
		PaidDate:     paidDate,
		RequestId:    "settle-2",
	})
	if err != utils.ErrorAlreadySettled {
		t.Fatalf("expected ErrorAlreadySettled, got %v", err)
	}

	// Delete with mode=pending: paid occurrence and its ledger row survive.
	preview, err := workflow.DeleteRecurringBill(ctx, db, logger, tenantId, bill.ID, models.DeleteModePending)
	if err != nil {
		t.Fatalf("DeleteRecurringBill: %v", err)
	}
	if preview.PaidOccurrences != 1 {
		t.Fatalf("preview paid occurrences expected 1, got %d", preview.PaidOccurrences)
	}

	var paidCount, pendingCount int64
	if err := db.Model(&models.BillOccurrence{}).
		Where("tenant_id = ? AND recurring_bill_id = ? AND status = ?", tenantId, bill.ID, models.OccurrenceStatusPaid).
		Count(&paidCount).Error; err != nil {
		t.Fatalf("count paid: %v", err)
	}
	if paidCount != 1 {
		t.Fatalf("paid occurrence must survive a pending-mode delete, got %d", paidCount)
	}
	if err := db.Model(&models.BillOccurrence{}).
		Where("tenant_id = ? AND recurring_bill_id = ? AND status = ?", tenantId, bill.ID, models.OccurrenceStatusPending).
		Count(&pendingCount).Error; err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pendingCount != 0 {
		t.Fatalf("pending occurrences must be tombstoned, got %d", pendingCount)
	}
	if err := db.First(&txn, txn.ID).Error; err != nil {
		t.Fatalf("ledger transaction must never be deleted: %v", err)
	}

	// Regeneration must not resurrect tombstoned dates.
	report, err := workflow.RegenerateMissingOccurrences(db, logger, tenantId, today, false)
	if err != nil {
		t.Fatalf("RegenerateMissingOccurrences: %v", err)
	}
	if report.OccurrencesCreated != 0 {
		t.Fatalf("regeneration resurrected %d tombstoned occurrences", report.OccurrencesCreated)
	}
}

func integrationSetup(t *testing.T, slug string) (*gorm.DB, *logrus.Logger, string, context.Context) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires MySQL + Redis)")
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	tenantId := "test-" + slug + "-" + time.Now().Format("20060102150405")
	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	return db, logrus.New(), tenantId, ctx
}

func billOccurrencesOrdered(t *testing.T, db *gorm.DB, tenantId string, billId int) []models.BillOccurrence {
	t.Helper()
	var occurrences []models.BillOccurrence
	if err := db.Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, billId).
		Order("due_date ASC").Find(&occurrences).Error; err != nil {
		t.Fatalf("fetch occurrences: %v", err)
	}
	return occurrences
}

func billTransactionCount(t *testing.T, db *gorm.DB, tenantId string, billId int) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.Transaction{}).
		Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, billId).
		Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}

func accountBalance(t *testing.T, db *gorm.DB, accountId int) decimal.Decimal {
	t.Helper()
	var account models.BankAccount
	if err := db.First(&account, accountId).Error; err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	return account.CurrentBalance
}

// Transaction backfill over legacy half-settled data: a paid occurrence with
// no ledger row gets exactly one transaction and one balance delta, a rerun
// is a no-op, and an existing unlinked matching transaction is linked rather
// than duplicated. Settlement applies the same matching before posting.
func TestTransactionBackfillFlow(t *testing.T) {
	db, logger, tenantId, ctx := integrationSetup(t, "backfill")

	account, err := models.CreateBankAccount(ctx, &models.NewBankAccount{
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	amount := decimal.NewFromInt(45)
	firstDue := time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC)
	bill, err := models.CreateRecurringBill(ctx, &models.NewRecurringBill{
		Name:          "Internet",
		Type:          models.BillTypeExpense,
		Amount:        &amount,
		BankAccountId: account.ID,
		Frequency:     models.BillFrequencyMonthly,
		DueDay:        10,
		FirstDueDate:  &firstDue,
	})
	if err != nil {
		t.Fatalf("CreateRecurringBill: %v", err)
	}

	today := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	created, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today)
	if err != nil {
		t.Fatalf("GenerateOccurrencesForTenant: %v", err)
	}
	if created < 3 {
		t.Fatalf("expected at least 3 occurrences, got %d", created)
	}
	occurrences := billOccurrencesOrdered(t, db, tenantId, bill.ID)

	// a regenerate over a fully-populated schedule reports every date skipped
	regen, err := workflow.RegenerateMissingOccurrences(db, logger, tenantId, today, false)
	if err != nil {
		t.Fatalf("RegenerateMissingOccurrences: %v", err)
	}
	if regen.OccurrencesCreated != 0 || regen.OccurrencesSkipped < created {
		t.Fatalf("regenerate on full schedule: created=%d skipped=%d", regen.OccurrencesCreated, regen.OccurrencesSkipped)
	}

	// Legacy half-settled row: paid, but no ledger transaction was written.
	markPaid := func(o models.BillOccurrence) {
		err := db.Model(&models.BillOccurrence{}).
			Where("id = ?", o.ID).
			Updates(map[string]interface{}{
				"status":      models.OccurrenceStatusPaid,
				"paid_amount": amount,
				"paid_date":   o.DueDate,
			}).Error
		if err != nil {
			t.Fatalf("mark occurrence %d paid: %v", o.ID, err)
		}
	}
	markPaid(occurrences[0])

	dry, err := workflow.BackfillMissingTransactions(db, logger, tenantId, true)
	if err != nil {
		t.Fatalf("BackfillMissingTransactions dry run: %v", err)
	}
	if dry.Examined != 1 || dry.Repaired != 0 {
		t.Fatalf("dry run: examined=%d repaired=%d, want 1/0", dry.Examined, dry.Repaired)
	}
	if billTransactionCount(t, db, tenantId, bill.ID) != 0 {
		t.Fatalf("dry run must not write transactions")
	}

	report, err := workflow.BackfillMissingTransactions(db, logger, tenantId, false)
	if err != nil {
		t.Fatalf("BackfillMissingTransactions: %v", err)
	}
	if report.Repaired != 1 || report.Linked != 0 {
		t.Fatalf("backfill: repaired=%d linked=%d, want 1/0", report.Repaired, report.Linked)
	}

	var repaired models.BillOccurrence
	if err := db.First(&repaired, occurrences[0].ID).Error; err != nil {
		t.Fatalf("fetch repaired occurrence: %v", err)
	}
	if repaired.TransactionId == nil {
		t.Fatalf("backfill must link the created transaction")
	}
	var txn models.Transaction
	if err := db.First(&txn, *repaired.TransactionId).Error; err != nil {
		t.Fatalf("fetch backfilled transaction: %v", err)
	}
	if !txn.Amount.Equal(amount.Neg()) {
		t.Fatalf("backfilled amount expected %s, got %s", amount.Neg(), txn.Amount)
	}
	wantBalance := decimal.NewFromInt(500).Sub(amount)
	if got := accountBalance(t, db, account.ID); !got.Equal(wantBalance) {
		t.Fatalf("balance after backfill expected %s, got %s", wantBalance, got)
	}

	// Rerun must be a no-op: no second transaction, no second balance delta.
	rerun, err := workflow.BackfillMissingTransactions(db, logger, tenantId, false)
	if err != nil {
		t.Fatalf("BackfillMissingTransactions rerun: %v", err)
	}
	if rerun.Examined != 0 {
		t.Fatalf("rerun examined %d occurrences, want 0", rerun.Examined)
	}
	if n := billTransactionCount(t, db, tenantId, bill.ID); n != 1 {
		t.Fatalf("rerun duplicated the ledger entry: %d transactions", n)
	}
	if got := accountBalance(t, db, account.ID); !got.Equal(wantBalance) {
		t.Fatalf("rerun re-applied the balance delta: %s", got)
	}

	// A matching completed transaction that exists but was never linked must
	// be linked, not duplicated.
	unlinked := models.Transaction{
		TenantId:        tenantId,
		Description:     bill.Name,
		Amount:          amount.Neg(),
		Type:            models.TransactionTypeExpense,
		Status:          models.TransactionStatusCompleted,
		TransactionDate: occurrences[1].DueDate,
		BankAccountId:   account.ID,
		IsRecurring:     utils.NewTrue(),
		RecurringBillId: &bill.ID,
	}
	if err := db.Create(&unlinked).Error; err != nil {
		t.Fatalf("create unlinked transaction: %v", err)
	}
	markPaid(occurrences[1])

	linkRun, err := workflow.BackfillMissingTransactions(db, logger, tenantId, false)
	if err != nil {
		t.Fatalf("BackfillMissingTransactions link run: %v", err)
	}
	if linkRun.Linked != 1 || linkRun.Repaired != 0 {
		t.Fatalf("link run: linked=%d repaired=%d, want 1/0", linkRun.Linked, linkRun.Repaired)
	}
	var linkedOcc models.BillOccurrence
	if err := db.First(&linkedOcc, occurrences[1].ID).Error; err != nil {
		t.Fatalf("fetch linked occurrence: %v", err)
	}
	if linkedOcc.TransactionId == nil || *linkedOcc.TransactionId != unlinked.ID {
		t.Fatalf("occurrence must link the existing transaction %d, got %v", unlinked.ID, linkedOcc.TransactionId)
	}
	if n := billTransactionCount(t, db, tenantId, bill.ID); n != 2 {
		t.Fatalf("link run must not create a transaction: %d total", n)
	}
	if got := accountBalance(t, db, account.ID); !got.Equal(wantBalance) {
		t.Fatalf("linking must not touch the balance: %s", got)
	}

	// Settlement consults the same guard: an existing unlinked entry for
	// (bill, due date, amount) is adopted, never posted again.
	adoptee := models.Transaction{
		TenantId:        tenantId,
		Description:     bill.Name,
		Amount:          amount.Neg(),
		Type:            models.TransactionTypeExpense,
		Status:          models.TransactionStatusCompleted,
		TransactionDate: occurrences[2].DueDate,
		BankAccountId:   account.ID,
		IsRecurring:     utils.NewTrue(),
		RecurringBillId: &bill.ID,
	}
	if err := db.Create(&adoptee).Error; err != nil {
		t.Fatalf("create adoptee transaction: %v", err)
	}
	settled, err := workflow.SettleOccurrence(ctx, db, logger, tenantId, workflow.SettleOccurrenceInput{
		OccurrenceId: occurrences[2].ID,
		PaidDate:     occurrences[2].DueDate,
		RequestId:    "backfill-settle-1",
	})
	if err != nil {
		t.Fatalf("SettleOccurrence: %v", err)
	}
	if settled.TransactionId == nil || *settled.TransactionId != adoptee.ID {
		t.Fatalf("settlement must adopt existing transaction %d, got %v", adoptee.ID, settled.TransactionId)
	}
	if n := billTransactionCount(t, db, tenantId, bill.ID); n != 3 {
		t.Fatalf("settlement replayed the ledger entry: %d total", n)
	}
	if got := accountBalance(t, db, account.ID); !got.Equal(wantBalance) {
		t.Fatalf("adopting must not re-apply the balance delta: %s", got)
	}
}

// mode=all deletion tombstones every occurrence, paid ones included, while
// ledger transactions stay readable.
func TestDeleteAllModeKeepsLedger(t *testing.T) {
	db, logger, tenantId, ctx := integrationSetup(t, "delete-all")

	account, err := models.CreateBankAccount(ctx, &models.NewBankAccount{
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	amount := decimal.NewFromInt(30)
	firstDue := time.Date(2025, time.October, 5, 0, 0, 0, 0, time.UTC)
	bill, err := models.CreateRecurringBill(ctx, &models.NewRecurringBill{
		Name:          "Gym",
		Type:          models.BillTypeExpense,
		Amount:        &amount,
		BankAccountId: account.ID,
		Frequency:     models.BillFrequencyMonthly,
		DueDay:        5,
		FirstDueDate:  &firstDue,
	})
	if err != nil {
		t.Fatalf("CreateRecurringBill: %v", err)
	}

	today := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	created, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today)
	if err != nil {
		t.Fatalf("GenerateOccurrencesForTenant: %v", err)
	}
	if created == 0 {
		t.Fatalf("expected occurrences to be generated")
	}
	occurrences := billOccurrencesOrdered(t, db, tenantId, bill.ID)

	settled, err := workflow.SettleOccurrence(ctx, db, logger, tenantId, workflow.SettleOccurrenceInput{
		OccurrenceId: occurrences[0].ID,
		PaidDate:     occurrences[0].DueDate,
		RequestId:    "delete-all-settle-1",
	})
	if err != nil {
		t.Fatalf("SettleOccurrence: %v", err)
	}

	// settlement's auto-generate top-up may have extended the schedule
	totalBefore := int64(len(billOccurrencesOrdered(t, db, tenantId, bill.ID)))

	preview, err := workflow.DeleteRecurringBill(ctx, db, logger, tenantId, bill.ID, models.DeleteModeAll)
	if err != nil {
		t.Fatalf("DeleteRecurringBill: %v", err)
	}
	if preview.PaidOccurrences != 1 {
		t.Fatalf("preview paid occurrences expected 1, got %d", preview.PaidOccurrences)
	}

	var visible int64
	if err := db.Model(&models.BillOccurrence{}).
		Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, bill.ID).
		Count(&visible).Error; err != nil {
		t.Fatalf("count visible occurrences: %v", err)
	}
	if visible != 0 {
		t.Fatalf("mode=all must tombstone every occurrence, %d still visible", visible)
	}
	var tombstoned int64
	if err := db.Unscoped().Model(&models.BillOccurrence{}).
		Where("tenant_id = ? AND recurring_bill_id = ?", tenantId, bill.ID).
		Count(&tombstoned).Error; err != nil {
		t.Fatalf("count tombstoned occurrences: %v", err)
	}
	if tombstoned != totalBefore {
		t.Fatalf("tombstoned rows expected %d, got %d", totalBefore, tombstoned)
	}

	var txn models.Transaction
	if err := db.First(&txn, *settled.TransactionId).Error; err != nil {
		t.Fatalf("ledger transaction must survive a mode=all delete: %v", err)
	}

	var gone models.RecurringBill
	err = db.Where("tenant_id = ?", tenantId).First(&gone, bill.ID).Error
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("bill must be tombstoned, got err=%v", err)
	}
}

// Settling an occurrence of a cancelled bill is an invalid-state error.
func TestSettleCancelledBill(t *testing.T) {
	db, logger, tenantId, ctx := integrationSetup(t, "cancelled")

	account, err := models.CreateBankAccount(ctx, &models.NewBankAccount{
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	amount := decimal.NewFromInt(25)
	firstDue := time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)
	bill, err := models.CreateRecurringBill(ctx, &models.NewRecurringBill{
		Name:          "Streaming",
		Type:          models.BillTypeExpense,
		Amount:        &amount,
		BankAccountId: account.ID,
		Frequency:     models.BillFrequencyMonthly,
		DueDay:        15,
		FirstDueDate:  &firstDue,
	})
	if err != nil {
		t.Fatalf("CreateRecurringBill: %v", err)
	}

	today := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today); err != nil {
		t.Fatalf("GenerateOccurrencesForTenant: %v", err)
	}
	occurrences := billOccurrencesOrdered(t, db, tenantId, bill.ID)

	if err := db.Model(&models.RecurringBill{}).
		Where("id = ?", bill.ID).
		Update("status", models.BillStatusCancelled).Error; err != nil {
		t.Fatalf("cancel bill: %v", err)
	}

	_, err = workflow.SettleOccurrence(ctx, db, logger, tenantId, workflow.SettleOccurrenceInput{
		OccurrenceId: occurrences[0].ID,
		PaidDate:     occurrences[0].DueDate,
		RequestId:    "cancelled-settle-1",
	})
	if err != utils.ErrorInvalidState {
		t.Fatalf("expected ErrorInvalidState for a cancelled bill, got %v", err)
	}

	if got := accountBalance(t, db, account.ID); !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("rejected settlement must not move the balance: %s", got)
	}
}
