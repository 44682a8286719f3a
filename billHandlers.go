package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func createRecurringBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRecurringBill
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		bill, err := models.CreateRecurringBill(c.Request.Context(), &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	}
}

func listRecurringBillsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.BillStatus
		if v := c.Query("status"); v != "" {
			s := models.BillStatus(v)
			status = &s
		}
		var frequency *models.BillFrequency
		if v := c.Query("frequency"); v != "" {
			f := models.BillFrequency(v)
			frequency = &f
		}

		// cursor pagination when limit is supplied, plain list otherwise
		if v := c.Query("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit <= 0 || limit > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			var after *string
			if a := c.Query("after"); a != "" {
				after = &a
			}
			var name *string
			if n := c.Query("name"); n != "" {
				name = &n
			}
			conn, err := models.PaginateRecurringBills(c.Request.Context(), &limit, after, name)
			if err != nil {
				apiError(c, err)
				return
			}
			c.JSON(http.StatusOK, conn)
			return
		}

		bills, err := models.GetRecurringBills(c.Request.Context(), status, frequency)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, bills)
	}
}

func getRecurringBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		bill, err := models.GetRecurringBill(c.Request.Context(), id)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func updateRecurringBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewRecurringBill
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		bill, err := models.UpdateRecurringBill(c.Request.Context(), id, &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func listBillTemplatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		templates, err := models.GetRecurringBillTemplates(c.Request.Context())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, templates)
	}
}

func activateBillTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.TemplateActivation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		bill, err := models.ActivateRecurringBillTemplate(c.Request.Context(), &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	}
}

func deletionPreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())
		preview, err := workflow.PreviewBillDeletion(config.GetDB().WithContext(c.Request.Context()), tenantId, id)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, preview)
	}
}

func deleteRecurringBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		mode := models.DeleteMode(c.DefaultQuery("mode", string(models.DeleteModePending)))
		if mode != models.DeleteModePending && mode != models.DeleteModeAll {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'pending' or 'all'"})
			return
		}
		tenantId, _ := utils.GetTenantIdFromContext(c.Request.Context())
		preview, err := workflow.DeleteRecurringBill(c.Request.Context(),
			config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), tenantId, id, mode)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true, "mode": mode, "preview": preview})
	}
}

func generateOccurrencesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		bill, err := models.GetRecurringBill(c.Request.Context(), id)
		if err != nil {
			apiError(c, err)
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		logger := config.GetLogger()
		var created []*models.BillOccurrence
		var skipped int
		err = db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			created, skipped, txErr = workflow.GenerateOccurrences(tx, logger, bill, time.Now())
			return txErr
		})
		if err != nil {
			apiError(c, err)
			return
		}
		if len(created) > 0 {
			models.InvalidateUpcomingOccurrences(bill.TenantId)
		}
		c.JSON(http.StatusOK, gin.H{"created": len(created), "skipped": skipped, "occurrences": created})
	}
}
