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

// Transaction is a ledger entry. Amounts are signed: expenses negative,
// income positive. TransactionDate carries the obligation's due date so
// monthly reports bucket the charge where it belongs; PaidDate carries the
// actual settlement date.
type Transaction struct {
	ID                   int               `gorm:"primary_key" json:"id"`
	TenantId             string            `gorm:"size:64;index;not null" json:"tenant_id"`
	Description          string            `gorm:"size:255;not null" json:"description"`
	Amount               decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type                 TransactionType   `gorm:"type:enum('income','expense','transfer');not null;index" json:"type"`
	Status               TransactionStatus `gorm:"type:enum('pending','completed');default:'completed'" json:"status"`
	TransactionDate      time.Time         `gorm:"type:date;not null;index" json:"transaction_date"`
	PaidDate             *time.Time        `gorm:"type:date" json:"paid_date"`
	CategoryId           int               `gorm:"index" json:"category_id"`
	BankAccountId        int               `gorm:"index;not null" json:"bank_account_id"`
	PaymentMethodId      int               `json:"payment_method_id"`
	DestinationAccountId *int              `gorm:"index" json:"destination_account_id"`
	IsRecurring          *bool             `gorm:"not null;default:false" json:"is_recurring"`
	RecurringBillId      *int              `gorm:"index" json:"recurring_bill_id"`
	IsPaidEarly          *bool             `json:"is_paid_early"`
	IsPaidLate           *bool             `json:"is_paid_late"`
	DaysEarlyLate        *int              `json:"days_early_late"`
	Notes                string            `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (t Transaction) GetId() int {
	return t.ID
}

func (t Transaction) GetCursor() string {
	return t.TransactionDate.Format("2006-01-02")
}

type TransactionsEdge Edge[Transaction]

type TransactionsConnection struct {
	Edges    []*TransactionsEdge `json:"edges"`
	PageInfo *PageInfo           `json:"pageInfo"`
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[Transaction](ctx, tenantId, id)
}

type TransactionFilter struct {
	Type            *TransactionType
	BankAccountId   *int
	RecurringBillId *int
	FromDate        *time.Time
	ToDate          *time.Time
}

func PaginateTransactions(ctx context.Context, limit *int, after *string, filter TransactionFilter) (*TransactionsConnection, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if filter.Type != nil && *filter.Type != "" {
		dbCtx = dbCtx.Where("type = ?", *filter.Type)
	}
	if filter.BankAccountId != nil {
		dbCtx = dbCtx.Where("bank_account_id = ?", *filter.BankAccountId)
	}
	if filter.RecurringBillId != nil {
		dbCtx = dbCtx.Where("recurring_bill_id = ?", *filter.RecurringBillId)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("transaction_date >= ?", utils.TruncateToDay(*filter.FromDate))
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("transaction_date <= ?", utils.TruncateToDay(*filter.ToDate))
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Transaction](dbCtx, *limit, after, "transaction_date", "<")
	if err != nil {
		return nil, err
	}
	var conn TransactionsConnection
	conn.PageInfo = pageInfo
	for _, edge := range edges {
		transactionsEdge := TransactionsEdge(edge)
		conn.Edges = append(conn.Edges, &transactionsEdge)
	}
	return &conn, nil
}

// FindUnlinkedBillTransaction looks for a completed ledger entry that already
// matches an occurrence slot (same bill, due date on transaction_date, same
// signed amount) but is not linked by any occurrence. Settlement and the
// transaction backfill consult it before creating a new entry, so a replay or
// a legacy half-settled row cannot double-post the charge.
func FindUnlinkedBillTransaction(tx *gorm.DB, tenantId string, recurringBillId int, transactionDate time.Time, amount decimal.Decimal) (*Transaction, error) {
	var transaction Transaction
	err := tx.
		Where("tenant_id = ? AND recurring_bill_id = ? AND transaction_date = ? AND amount = ? AND status = ?",
			tenantId, recurringBillId, utils.TruncateToDay(transactionDate), amount, TransactionStatusCompleted).
		Where("id NOT IN (SELECT transaction_id FROM bill_occurrences WHERE transaction_id IS NOT NULL)").
		Order("id").
		First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// TransferLegsByDescriptionAndDate loads transfer legs grouped for the sign
// repair pass. Pairs are matched by (description, transaction_date) since the
// two legs of a transfer are written together with identical metadata.
func TransferLegsByDescriptionAndDate(tx *gorm.DB, tenantId string) ([]*Transaction, error) {
	var legs []*Transaction
	err := tx.
		Where("tenant_id = ? AND type = ?", tenantId, TransactionTypeTransfer).
		Order("transaction_date, description, id").
		Find(&legs).Error
	if err != nil {
		return nil, err
	}
	return legs, nil
}
