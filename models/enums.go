package models

type BillType string

const (
	BillTypeIncome  BillType = "income"
	BillTypeExpense BillType = "expense"
)

type BillFrequency string

const (
	BillFrequencyDaily   BillFrequency = "daily"
	BillFrequencyWeekly  BillFrequency = "weekly"
	BillFrequencyMonthly BillFrequency = "monthly"
	BillFrequencyYearly  BillFrequency = "yearly"
)

type BillStatus string

const (
	BillStatusActive    BillStatus = "active"
	BillStatusPaused    BillStatus = "paused"
	BillStatusCancelled BillStatus = "cancelled"
)

type OccurrenceStatus string

const (
	OccurrenceStatusPending OccurrenceStatus = "pending"
	OccurrenceStatusPaid    OccurrenceStatus = "paid"
	OccurrenceStatusSkipped OccurrenceStatus = "skipped"
)

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

type BankAccountType string

const (
	BankAccountTypeChecking BankAccountType = "checking"
	BankAccountTypeSavings  BankAccountType = "savings"
	BankAccountTypeWallet   BankAccountType = "wallet"
	BankAccountTypeCredit   BankAccountType = "credit_card"
)

// DeleteMode selects the cascade policy when a recurring bill is removed.
type DeleteMode string

const (
	// DeleteModePending tombstones the bill and its pending occurrences only;
	// paid occurrences and their ledger rows stay readable for history.
	DeleteModePending DeleteMode = "pending"
	// DeleteModeAll tombstones the bill and every occurrence. Ledger rows are
	// never deleted: financial history is immutable.
	DeleteModeAll DeleteMode = "all"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleMember UserRole = "Member"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// Engine event types carried through the transactional outbox.
type EventType string

const (
	EventTypeOccurrenceSettled  EventType = "occurrence.settled"
	EventTypeOccurrenceSkipped  EventType = "occurrence.skipped"
	EventTypeOccurrenceReopened EventType = "occurrence.reopened"
	EventTypeOccurrenceDueSoon  EventType = "occurrence.due_soon"
	EventTypeOccurrenceOverdue  EventType = "occurrence.overdue"
	EventTypeBillDeleted        EventType = "bill.deleted"
)

type EventReferenceType string

const (
	EventReferenceTypeOccurrence EventReferenceType = "OCCURRENCE"
	EventReferenceTypeBill       EventReferenceType = "BILL"
)

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
