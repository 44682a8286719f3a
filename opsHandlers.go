package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models/reports"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/gin-gonic/gin"
)

func authorizeAdminOnly(ctx context.Context) error {
	isAdmin, ok := utils.GetIsAdminFromContext(ctx)
	if !ok || !isAdmin {
		return errors.New("unauthorized")
	}
	return nil
}

type opsRequest struct {
	TenantId string `json:"tenant_id"`
	DryRun   bool   `json:"dry_run"`
}

func bindOpsRequest(c *gin.Context) (*opsRequest, bool) {
	if err := authorizeAdminOnly(c.Request.Context()); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	var req opsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return nil, false
	}
	if req.TenantId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return nil, false
	}
	return &req, true
}

func transactionsBackfillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindOpsRequest(c)
		if !ok {
			return
		}
		report, err := workflow.BackfillMissingTransactions(
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), req.TenantId, req.DryRun)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantId, "dry_run": req.DryRun, "report": report})
	}
}

func occurrencesRegenerateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindOpsRequest(c)
		if !ok {
			return
		}
		report, err := workflow.RegenerateMissingOccurrences(
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), req.TenantId, time.Now(), req.DryRun)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantId, "dry_run": req.DryRun, "report": report})
	}
}

func transferSignsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindOpsRequest(c)
		if !ok {
			return
		}
		report, err := workflow.RepairTransferPairs(
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), req.TenantId, req.DryRun)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantId, "dry_run": req.DryRun, "report": report})
	}
}

func alertScanHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindOpsRequest(c)
		if !ok {
			return
		}
		report, err := workflow.ScanDueDateAlerts(c.Request.Context(),
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), req.TenantId, time.Now())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantId, "report": report})
	}
}

func tenantGenerateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindOpsRequest(c)
		if !ok {
			return
		}
		created, skipped, err := workflow.GenerateOccurrencesForTenant(
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), req.TenantId, time.Now())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantId, "created": created, "skipped": skipped})
	}
}

func occurrenceScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from := utils.TruncateToDay(time.Now())
		to := from.AddDate(0, 3, 0)
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
				return
			}
			from = t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
				return
			}
			to = t
		}
		var billId *int
		if v := c.Query("recurring_bill_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurring_bill_id"})
				return
			}
			billId = &id
		}

		rows, err := reports.GetOccurrenceScheduleReport(c.Request.Context(), billId, from, to)
		if err != nil {
			apiError(c, err)
			return
		}

		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", "attachment; filename=occurrence-schedule.xlsx")
			if err := reports.WriteOccurrenceScheduleExcel(c.Writer, rows); err != nil {
				_ = c.Error(err)
			}
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func monthlyProjectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		months := 3
		if v := c.Query("months"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 24 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid months"})
				return
			}
			months = n
		}
		rows, err := reports.GetMonthlyProjectionReport(c.Request.Context(), months)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
