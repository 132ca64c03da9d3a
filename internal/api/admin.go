package api

import (
	"net/http"
	"strconv"
	"time"
	"voucher-api/internal/models"
	"voucher-api/internal/response"
	"voucher-api/internal/services"
	"voucher-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// VoucherStatsHandler returns total/available/used counts per product
func VoucherStatsHandler(stats *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := stats.ProductCounts()
		if err != nil {
			logging.Errorf("Failed to aggregate voucher stats: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get voucher stats")
			return
		}
		response.SuccessJSON(c, counts)
	}
}

// CreateVouchersRequest represents an inventory loading request
type CreateVouchersRequest struct {
	Vouchers []struct {
		Code             string `json:"code" binding:"required"`
		ProductName      string `json:"product_name" binding:"required"`
		Amount           int64  `json:"amount" binding:"required,gt=0"`
		DiscountedAmount *int64 `json:"discounted_amount"`
		Image            string `json:"image"`
	} `json:"vouchers" binding:"required,min=1,dive"`
}

// CreateVouchersHandler bulk-loads new voucher codes into the pool
func CreateVouchersHandler(vouchers *services.VoucherService, stats *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVouchersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
			return
		}

		batch := make([]models.Voucher, 0, len(req.Vouchers))
		for _, v := range req.Vouchers {
			batch = append(batch, models.Voucher{
				Code:             v.Code,
				ProductName:      v.ProductName,
				Amount:           v.Amount,
				DiscountedAmount: v.DiscountedAmount,
				Image:            v.Image,
			})
		}

		if err := vouchers.CreateBatch(batch); err != nil {
			logging.Errorf("Failed to load vouchers: %v", err)
			response.ErrorJSON(c, http.StatusBadRequest, "Failed to load vouchers: "+err.Error())
			return
		}
		stats.Invalidate()

		response.SuccessJSON(c, gin.H{"created": len(batch)})
	}
}

// ListTransactionsHandler returns the paginated transaction ledger with
// status, date-range and free-text filters. Read-only.
func ListTransactionsHandler(transactions *services.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := services.ListFilter{
			Status: models.NormalizeStatus(c.Query("status")),
			Search: c.Query("search"),
		}

		if from := c.Query("date_from"); from != "" {
			if t, err := time.Parse("2006-01-02", from); err == nil {
				filter.DateFrom = &t
			}
		}
		if to := c.Query("date_to"); to != "" {
			if t, err := time.Parse("2006-01-02", to); err == nil {
				end := t.Add(24*time.Hour - time.Second)
				filter.DateTo = &end
			}
		}

		filter.Page = intQuery(c, "page", 1)
		filter.PageSize = intQuery(c, "page_size", 20)

		txns, total, err := transactions.List(filter)
		if err != nil {
			logging.Errorf("Failed to list transactions: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list transactions")
			return
		}

		response.PagedJSON(c, txns, response.PageMeta{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		})
	}
}

func intQuery(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
