package api

import (
	"time"
	"voucher-api/internal/config"
	"voucher-api/internal/database"
	"voucher-api/internal/middleware"
	"voucher-api/internal/services"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	db := database.GetDB()
	redisClient := database.GetRedis()

	voucherService := services.NewVoucherService(db)
	transactionService := services.NewTransactionService(db)
	matcher := services.NewMatcher(transactionService)
	notifier := services.NewBrevoService()
	dedupe := services.NewCallbackDedupe(redisClient)
	statsService := services.NewStatsService(voucherService, redisClient)

	validity := time.Duration(config.AppConfig.VoucherValidityDays) * 24 * time.Hour
	engine := services.NewAllocationService(voucherService, transactionService, matcher, notifier, dedupe, validity)

	grace := time.Duration(config.AppConfig.PendingGraceMinutes) * time.Minute
	reaper := services.NewReaperService(voucherService, transactionService, grace, config.AppConfig.ReaperBatchSize)

	// API route group
	api := r.Group("/api")
	{
		// Purchase flow (public client API)
		purchase := api.Group("/purchase")
		{
			purchase.POST("", CreatePurchaseHandler(transactionService, voucherService))
			purchase.GET("/:temp_id", PurchaseStatusHandler(transactionService))
		}

		// Payment gateway callback (no auth beyond the gateway's own
		// signature plumbing upstream; must always acknowledge 200)
		api.POST("/payment/callback", PaymentCallbackHandler(engine))

		// Reaper trigger (scheduler only, shared secret)
		reaperGroup := api.Group("/reaper")
		reaperGroup.Use(middleware.ReaperAuthMiddleware())
		{
			reaperGroup.POST("/run", RunReaperHandler(reaper))
		}

		// Operator endpoints (API key)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/vouchers/stats", VoucherStatsHandler(statsService))
			admin.POST("/vouchers", CreateVouchersHandler(voucherService, statsService))
			admin.GET("/transactions", ListTransactionsHandler(transactionService))
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "voucher-service",
		})
	})
}
