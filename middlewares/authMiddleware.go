package middlewares

import (
	"net/http"
	"strings"

	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware validates the bearer token and loads the caller's tenant,
// user id and role into the request context. Requests without a token pass
// through; RequireAuth rejects them at the route level.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetTenantIdInContext(ctx, customClaim.TenantId)
		ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
		ctx = utils.SetIsAdminInContext(ctx, customClaim.Role == string(models.UserRoleAdmin))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth aborts requests that carry no authenticated tenant.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context())
		if !ok || tenantId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CorrelationMiddleware threads an X-Correlation-Id header through the
// request context; outbox events inherit it so a settlement can be traced
// from API call to published event.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", correlationId)
		c.Next()
	}
}
