package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/middlewares"
	"github.com/fynanpro/finance_backend/models"
	"github.com/fynanpro/finance_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("finance-backend")

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())

	api := r.Group("/api/v1", middlewares.RequireAuth())
	{
		api.POST("/auth/change-password", changePasswordHandler())

		api.POST("/bank-accounts", createBankAccountHandler())
		api.GET("/bank-accounts", listBankAccountsHandler())
		api.POST("/categories", createCategoryHandler())
		api.GET("/categories", listCategoriesHandler())
		api.POST("/payment-methods", createPaymentMethodHandler())
		api.GET("/payment-methods", listPaymentMethodsHandler())

		api.POST("/recurring-bills", createRecurringBillHandler())
		api.GET("/recurring-bills", listRecurringBillsHandler())
		api.GET("/recurring-bills/templates", listBillTemplatesHandler())
		api.POST("/recurring-bills/templates/activate", activateBillTemplateHandler())
		api.GET("/recurring-bills/:id", getRecurringBillHandler())
		api.PUT("/recurring-bills/:id", updateRecurringBillHandler())
		api.GET("/recurring-bills/:id/deletion-preview", deletionPreviewHandler())
		api.DELETE("/recurring-bills/:id", deleteRecurringBillHandler())
		api.POST("/recurring-bills/:id/generate", generateOccurrencesHandler())

		api.GET("/occurrences", listOccurrencesHandler())
		api.GET("/occurrences/upcoming", upcomingOccurrencesHandler())
		api.POST("/occurrences/:id/settle", settleOccurrenceHandler())
		api.POST("/occurrences/:id/skip", skipOccurrenceHandler())
		api.POST("/occurrences/:id/reverse", reverseSettlementHandler())

		api.GET("/transactions", listTransactionsHandler())

		api.GET("/reports/occurrence-schedule", occurrenceScheduleHandler())
		api.GET("/reports/monthly-projection", monthlyProjectionHandler())
	}

	// Ops tooling (admin only): reconciliation repairs and alert scans.
	r.POST("/internal/ops/reconcile/transactions-backfill", transactionsBackfillHandler())
	r.POST("/internal/ops/reconcile/occurrences-regenerate", occurrencesRegenerateHandler())
	r.POST("/internal/ops/reconcile/transfer-signs", transferSignsHandler())
	r.POST("/internal/ops/alerts/scan", alertScanHandler())
	r.POST("/internal/ops/generate", tenantGenerateHandler())
}

// runDailyScans tops up occurrence schedules and emits due-date alerts for
// every tenant once per day. A redis lock keeps multiple instances from
// running the scan concurrently; losing the lock just means another instance
// is doing the work.
func runDailyScans(ctx context.Context, logger *logrus.Logger) {
	interval := 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("DAILY_SCAN_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		locker := config.GetRedisLock()
		var lock *redislock.Lock
		if locker != nil {
			var err error
			lock, err = locker.Obtain(ctx, "daily-scan", interval/2, nil)
			if err == redislock.ErrNotObtained {
				continue
			} else if err != nil {
				config.LogError(logger, "server.go", "runDailyScans", "obtain lock", nil, err)
				continue
			}
		}

		db := config.GetDB()
		var tenantIds []string
		err := db.Model(&models.RecurringBill{}).
			Where("status = ?", models.BillStatusActive).
			Distinct().Pluck("tenant_id", &tenantIds).Error
		if err != nil {
			config.LogError(logger, "server.go", "runDailyScans", "list tenants", nil, err)
		} else {
			scanCtx, span := tracer.Start(ctx, "daily-scan")
			today := time.Now()
			for _, tenantId := range tenantIds {
				if _, _, err := workflow.GenerateOccurrencesForTenant(db, logger, tenantId, today); err != nil {
					config.LogError(logger, "server.go", "runDailyScans", "generate", tenantId, err)
				}
				if _, err := workflow.ScanDueDateAlerts(scanCtx, db, logger, tenantId, today); err != nil {
					config.LogError(logger, "server.go", "runDailyScans", "alerts", tenantId, err)
				}
			}
			span.End()
		}

		if lock != nil {
			_ = lock.Release(ctx)
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Start outbox dispatcher (publishes AFTER commit).
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	go workflow.NewOutboxDispatcher(db, logger).Run(workerCtx)

	// Daily generation and alert scans.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_DAILY_SCANS")), "true") {
		go runDailyScans(workerCtx, logger)
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully on port " + port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelWorkers()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
