package main

import (
	"errors"
	"net/http"

	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/gin-gonic/gin"
)

// apiError maps domain errors onto HTTP statuses.
func apiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, utils.ErrorAlreadySettled):
		c.JSON(http.StatusConflict, gin.H{"error": "occurrence already settled"})
	case errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "request is already being processed"})
	case errors.Is(err, utils.ErrorInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state for this operation"})
	case errors.Is(err, utils.ErrorConsistencyViolation):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "data consistency violation"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	_ = c.Error(err)
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		info, err := models.Login(c.Request.Context(), body.Username, body.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			OldPassword string `json:"old_password" binding:"required"`
			NewPassword string `json:"new_password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		user, err := models.ChangePassword(c.Request.Context(), body.OldPassword, body.NewPassword)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBankAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		account, err := models.CreateBankAccount(c.Request.Context(), &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func listBankAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.GetBankAccounts(c.Request.Context())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func createCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		category, err := models.CreateCategory(c.Request.Context(), &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

func listCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := models.GetCategories(c.Request.Context())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func createPaymentMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPaymentMethod
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
			return
		}
		method, err := models.CreatePaymentMethod(c.Request.Context(), &input)
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusCreated, method)
	}
}

func listPaymentMethodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		methods, err := models.GetPaymentMethods(c.Request.Context())
		if err != nil {
			apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, methods)
	}
}
