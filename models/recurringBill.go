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

// RecurringBill is the recurring template ("Energy bill, R$119/month, due day 20").
// Amount is nil for variable bills; occurrences snapshot the amount at
// generation time, so later edits never rewrite history.
type RecurringBill struct {
	ID              int              `gorm:"primary_key" json:"id"`
	TenantId        string           `gorm:"size:64;index;not null" json:"tenant_id"`
	Name            string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Type            BillType         `gorm:"type:enum('income','expense');not null" json:"type" binding:"required"`
	Amount          *decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	IsVariableAmount *bool           `gorm:"not null;default:false" json:"is_variable_amount"`
	CategoryId      int              `gorm:"index" json:"category_id"`
	BankAccountId   int              `gorm:"index" json:"bank_account_id"`
	PaymentMethodId int              `json:"payment_method_id"`
	Frequency       BillFrequency    `gorm:"type:enum('daily','weekly','monthly','yearly');default:'monthly'" json:"frequency"`
	DueDay          int              `gorm:"not null" json:"due_day" binding:"required"`
	FirstDueDate    *time.Time       `gorm:"default:null" json:"first_due_date"`
	Status          BillStatus       `gorm:"type:enum('active','paused','cancelled');default:'active';index" json:"status"`
	AutoGenerate    *bool            `gorm:"not null;default:true" json:"auto_generate"`
	MonthsAhead     int              `gorm:"not null;default:3" json:"months_ahead"`
	IsFixed         *bool            `gorm:"not null;default:true" json:"is_fixed"`
	IsTemplate      *bool            `gorm:"not null;default:false;index" json:"is_template"`
	AlertDaysBefore int              `gorm:"not null;default:3" json:"alert_days_before"`
	AlertOnDueDay   *bool            `gorm:"not null;default:true" json:"alert_on_due_day"`
	AlertIfOverdue  *bool            `gorm:"not null;default:true" json:"alert_if_overdue"`
	Notes           string           `gorm:"type:text" json:"notes"`
	Occurrences     []BillOccurrence `json:"occurrences,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

type NewRecurringBill struct {
	Name            string           `json:"name" binding:"required"`
	Type            BillType         `json:"type" binding:"required,oneof=income expense"`
	Amount          *decimal.Decimal `json:"amount"`
	IsVariableAmount *bool           `json:"is_variable_amount"`
	CategoryId      int              `json:"category_id"`
	BankAccountId   int              `json:"bank_account_id"`
	PaymentMethodId int              `json:"payment_method_id"`
	Frequency       BillFrequency    `json:"frequency"`
	DueDay          int              `json:"due_day" binding:"required,min=1,max=31"`
	FirstDueDate    *time.Time       `json:"first_due_date"`
	AutoGenerate    *bool            `json:"auto_generate"`
	MonthsAhead     int              `json:"months_ahead"`
	IsFixed         *bool            `json:"is_fixed"`
	AlertDaysBefore *int             `json:"alert_days_before"`
	AlertOnDueDay   *bool            `json:"alert_on_due_day"`
	AlertIfOverdue  *bool            `json:"alert_if_overdue"`
	Notes           string           `json:"notes"`
}

type RecurringBillsEdge Edge[RecurringBill]

type RecurringBillsConnection struct {
	Edges    []*RecurringBillsEdge `json:"edges"`
	PageInfo *PageInfo             `json:"pageInfo"`
}

func (rb RecurringBill) GetId() int {
	return rb.ID
}

// returns decoded cursor string
func (rb RecurringBill) GetCursor() string {
	return rb.CreatedAt.String()
}

// EffectiveAmount is the snapshot value stamped onto generated occurrences:
// the bill amount, or zero for variable bills (paid amount arrives at settlement).
func (rb *RecurringBill) EffectiveAmount() decimal.Decimal {
	if rb.Amount == nil {
		return decimal.Zero
	}
	return *rb.Amount
}

// validate input for both create & update. (id = 0 for create)
func (input *NewRecurringBill) validate(ctx context.Context, tenantId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[RecurringBill](ctx, tenantId, id); err != nil {
			return err
		}
	}
	if input.DueDay < 1 || input.DueDay > 31 {
		return errors.New("due day must be between 1 and 31")
	}
	variable := input.IsVariableAmount != nil && *input.IsVariableAmount
	if !variable && (input.Amount == nil || !input.Amount.IsPositive()) {
		return errors.New("amount must be greater than zero")
	}
	if input.CategoryId > 0 {
		if err := utils.ValidateResourceId[Category](ctx, tenantId, input.CategoryId); err != nil {
			return errors.New("category not found")
		}
	}
	if input.BankAccountId > 0 {
		if err := utils.ValidateResourceId[BankAccount](ctx, tenantId, input.BankAccountId); err != nil {
			return errors.New("bank account not found")
		}
	}
	if input.PaymentMethodId > 0 {
		if err := utils.ValidateResourceId[PaymentMethod](ctx, tenantId, input.PaymentMethodId); err != nil {
			return errors.New("payment method not found")
		}
	}
	return nil
}

func CreateRecurringBill(ctx context.Context, input *NewRecurringBill) (*RecurringBill, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	if err := input.validate(ctx, tenantId, 0); err != nil {
		return nil, err
	}

	variable := input.IsVariableAmount != nil && *input.IsVariableAmount
	amount := input.Amount
	if variable {
		amount = nil
	}

	frequency := input.Frequency
	if frequency == "" {
		frequency = BillFrequencyMonthly
	}
	monthsAhead := input.MonthsAhead
	if monthsAhead <= 0 {
		monthsAhead = 3
	}

	bill := RecurringBill{
		TenantId:        tenantId,
		Name:            input.Name,
		Type:            input.Type,
		Amount:          amount,
		IsVariableAmount: &variable,
		CategoryId:      input.CategoryId,
		BankAccountId:   input.BankAccountId,
		PaymentMethodId: input.PaymentMethodId,
		Frequency:       frequency,
		DueDay:          input.DueDay,
		FirstDueDate:    input.FirstDueDate,
		Status:          BillStatusActive,
		AutoGenerate:    orDefault(input.AutoGenerate, true),
		MonthsAhead:     monthsAhead,
		IsFixed:         orDefault(input.IsFixed, true),
		IsTemplate:      utils.NewFalse(),
		AlertDaysBefore: utils.DereferencePtr(input.AlertDaysBefore, 3),
		AlertOnDueDay:   orDefault(input.AlertOnDueDay, true),
		AlertIfOverdue:  orDefault(input.AlertIfOverdue, true),
		Notes:           input.Notes,
	}

	if err := db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}

	return &bill, nil
}

// UpdateRecurringBill edits the template. Edits are non-retroactive: amounts
// already stamped onto occurrences keep their snapshot. With the legacy
// RETROACTIVE_BILL_EDITS flag on, pending occurrences are re-priced; paid
// ones are never touched.
func UpdateRecurringBill(ctx context.Context, id int, input *NewRecurringBill) (*RecurringBill, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	existing, err := utils.FetchModel[RecurringBill](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, tenantId, id); err != nil {
		return nil, err
	}

	variable := input.IsVariableAmount != nil && *input.IsVariableAmount
	amount := input.Amount
	if variable {
		amount = nil
	}

	existing.Name = input.Name
	existing.Type = input.Type
	existing.Amount = amount
	existing.IsVariableAmount = &variable
	existing.CategoryId = input.CategoryId
	existing.BankAccountId = input.BankAccountId
	existing.PaymentMethodId = input.PaymentMethodId
	if input.Frequency != "" {
		existing.Frequency = input.Frequency
	}
	existing.DueDay = input.DueDay
	if input.FirstDueDate != nil {
		existing.FirstDueDate = input.FirstDueDate
	}
	if input.AutoGenerate != nil {
		existing.AutoGenerate = input.AutoGenerate
	}
	if input.MonthsAhead > 0 {
		existing.MonthsAhead = input.MonthsAhead
	}
	if input.IsFixed != nil {
		existing.IsFixed = input.IsFixed
	}
	if input.AlertDaysBefore != nil {
		existing.AlertDaysBefore = *input.AlertDaysBefore
	}
	if input.AlertOnDueDay != nil {
		existing.AlertOnDueDay = input.AlertOnDueDay
	}
	if input.AlertIfOverdue != nil {
		existing.AlertIfOverdue = input.AlertIfOverdue
	}
	existing.Notes = input.Notes

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(existing).Error; err != nil {
			return err
		}
		if config.RetroactiveBillEdits() && amount != nil {
			// Legacy re-pricing: pending occurrences only.
			if err := tx.Model(&BillOccurrence{}).
				Where("recurring_bill_id = ? AND status = ?", existing.ID, OccurrenceStatusPending).
				Update("amount", *amount).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return existing, nil
}

func GetRecurringBill(ctx context.Context, id int) (*RecurringBill, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return utils.FetchModel[RecurringBill](ctx, tenantId, id)
}

func GetRecurringBills(ctx context.Context, status *BillStatus, frequency *BillFrequency) ([]*RecurringBill, error) {
	db := config.GetDB()
	var results []*RecurringBill

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	dbCtx := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Where("is_template = ?", false)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if frequency != nil && *frequency != "" {
		dbCtx = dbCtx.Where("frequency = ?", *frequency)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetRecurringBillTemplates lists onboarding templates for the tenant.
func GetRecurringBillTemplates(ctx context.Context) ([]*RecurringBill, error) {
	db := config.GetDB()
	var results []*RecurringBill

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_template = ?", tenantId, true).
		Order("type, name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TemplateActivation clones one onboarding template into a live bill,
// optionally overriding amount / due day / account bindings.
type TemplateActivation struct {
	TemplateId      int              `json:"template_id" binding:"required"`
	Amount          *decimal.Decimal `json:"amount"`
	DueDay          *int             `json:"due_day"`
	BankAccountId   *int             `json:"bank_account_id"`
	PaymentMethodId *int             `json:"payment_method_id"`
}

func ActivateRecurringBillTemplate(ctx context.Context, input *TemplateActivation) (*RecurringBill, error) {
	db := config.GetDB()

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	var template RecurringBill
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_template = ?", tenantId, true).
		First(&template, input.TemplateId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	amount := template.Amount
	if input.Amount != nil {
		amount = input.Amount
	}
	dueDay := template.DueDay
	if input.DueDay != nil {
		dueDay = *input.DueDay
	}
	if dueDay < 1 || dueDay > 31 {
		return nil, errors.New("due day must be between 1 and 31")
	}

	bill := RecurringBill{
		TenantId:        tenantId,
		Name:            template.Name,
		Type:            template.Type,
		Amount:          amount,
		IsVariableAmount: template.IsVariableAmount,
		CategoryId:      template.CategoryId,
		BankAccountId:   utils.DereferencePtr(input.BankAccountId, 0),
		PaymentMethodId: utils.DereferencePtr(input.PaymentMethodId, 0),
		Frequency:       template.Frequency,
		DueDay:          dueDay,
		Status:          BillStatusActive,
		AutoGenerate:    utils.NewTrue(),
		MonthsAhead:     3,
		IsFixed:         template.IsFixed,
		IsTemplate:      utils.NewFalse(),
		AlertDaysBefore: 3,
		AlertOnDueDay:   utils.NewTrue(),
		AlertIfOverdue:  utils.NewTrue(),
		Notes:           template.Notes,
	}

	if err := db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func PaginateRecurringBills(ctx context.Context, limit *int, after *string, name *string) (*RecurringBillsConnection, error) {

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Where("is_template = ?", false)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}

	edges, pageInfo, err := FetchPageCompositeCursor[RecurringBill](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var conn RecurringBillsConnection
	conn.PageInfo = pageInfo
	for _, edge := range edges {
		billsEdge := RecurringBillsEdge(edge)
		conn.Edges = append(conn.Edges, &billsEdge)
	}
	return &conn, nil
}

func orDefault(v *bool, def bool) *bool {
	if v != nil {
		return v
	}
	return &def
}
