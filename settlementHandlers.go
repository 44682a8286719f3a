package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func listOccurrencesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.OccurrenceFilter
		if v := c.Query("recurring_bill_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurring_bill_id"})
				return
			}
			filter.RecurringBillId = &id
		}
		if v := c.Query("status"); v != "" {
			s := models.OccurrenceStatus(v)
			filter.Status = &s
		}
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
				return
			}
			filter.FromDate = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
			filter.ToDate = &t
		}

		occurrences, err := models.GetBillOccurrences(c.Request.Context(), filter)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, occurrences)
	}
}

func upcomingOccurrencesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > 365 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
				return
			}
			days = n
		}
		occurrences, err := models.GetUpcomingOccurrences(c.Request.Context(), days)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, occurrences)
	}
}

func settleOccurrenceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			PaidAmount      *decimal.Decimal `json:"paid_amount"`
			PaidDate        string           `json:"paid_date"`
			BankAccountId   *int             `json:"bank_account_id"`
			PaymentMethodId *int             `json:"payment_method_id"`
			Notes           string           `json:"notes"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		paidDate := time.Now()
		if body.PaidDate != "" {
			t, err := time.Parse("2006-01-02", body.PaidDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paid_date, expected YYYY-MM-DD"})
				return
			}
			paidDate = t
		}

		tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())

		// best-effort per-tenant redis lock to shed concurrent settle bursts;
		// the MySQL posting lock and the conditional claim stay the
		// correctness layer when redis is down or the lock is contended
		if locker := config.GetRedisLock(); locker != nil {
			if lock, err := locker.Obtain(c.Request.Context(), "settle:"+tenantId, 10*time.Second, nil); err == nil {
				defer lock.Release(context.Background())
			}
		}

		input := workflow.SettleOccurrenceInput{
			OccurrenceId:    id,
			PaidAmount:      body.PaidAmount,
			PaidDate:        paidDate,
			BankAccountId:   body.BankAccountId,
			PaymentMethodId: body.PaymentMethodId,
			Notes:           body.Notes,
			RequestId:       c.GetHeader("Idempotency-Key"),
		}
		occurrence, err := workflow.SettleOccurrence(c.Request.Context(),
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), tenantId, input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, occurrence)
	}
}

func skipOccurrenceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var body struct {
			Notes string `json:"notes"`
		}
		_ = c.ShouldBindJSON(&body)

		tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())
		occurrence, err := workflow.SkipOccurrence(c.Request.Context(),
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), tenantId, id, body.Notes)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, occurrence)
	}
}

func reverseSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())
		occurrence, err := workflow.ReverseSettlement(c.Request.Context(),
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), tenantId, id)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, occurrence)
	}
}

func listTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}
		var after *string
		if a := c.Query("after"); a != "" {
			after = &a
		}

		var filter models.TransactionFilter
		if v := c.Query("type"); v != "" {
			t := models.TransactionType(v)
			filter.Type = &t
		}
		if v := c.Query("bank_account_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank_account_id"})
				return
			}
			filter.BankAccountId = &id
		}
		if v := c.Query("recurring_bill_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurring_bill_id"})
				return
			}
			filter.RecurringBillId = &id
		}
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
				return
			}
			filter.FromDate = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
			filter.ToDate = &t
		}

		conn, err := models.PaginateTransactions(c.Request.Context(), &limit, after, filter)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}
