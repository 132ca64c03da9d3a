package api

import (
	"net/http"
	"voucher-api/internal/response"
	"voucher-api/internal/services"
	"voucher-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PurchaseRequest represents a purchase initiation request
type PurchaseRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Name             string `json:"name" binding:"required"`
	ProductName      string `json:"product_name" binding:"required"`
	Amount           int64  `json:"amount" binding:"required,gt=0"`
	DiscountedAmount *int64 `json:"discounted_amount"`
}

// CreatePurchaseHandler creates the local pending transaction before the
// client is redirected to the payment gateway. The returned temp_id is the
// client's polling key and the reference the gateway can echo back.
func CreatePurchaseHandler(transactions *services.TransactionService, vouchers *services.VoucherService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
			return
		}

		available, err := vouchers.HasAvailable(req.ProductName)
		if err != nil {
			logging.Errorf("Failed to check inventory for %q: %v", req.ProductName, err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to check inventory")
			return
		}
		if !available {
			response.ErrorJSON(c, http.StatusConflict, "Product is sold out")
			return
		}

		txn, err := transactions.CreatePending(req.Email, req.Name, req.ProductName, req.Amount, req.DiscountedAmount)
		if err != nil {
			logging.Errorf("Failed to create pending transaction: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to create transaction")
			return
		}

		response.SuccessJSON(c, gin.H{
			"temp_id": txn.TempID,
			"status":  txn.Status,
		})
	}
}

// PurchaseStatusHandler is the polling endpoint the client hits after the
// gateway redirect. 404 while the callback has not landed yet is a normal
// transient state for the client, not a terminal error.
func PurchaseStatusHandler(transactions *services.TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tempID := c.Param("temp_id")

		txn, err := transactions.GetByTempID(tempID)
		if err != nil {
			logging.Errorf("Failed to look up transaction %s: %v", tempID, err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to look up transaction")
			return
		}
		if txn == nil {
			response.ErrorJSON(c, http.StatusNotFound, "Transaction not found")
			return
		}

		response.SuccessJSON(c, gin.H{
			"temp_id":      txn.TempID,
			"status":       txn.Status,
			"product_name": txn.ProductName,
			"amount":       txn.Amount,
			"voucher_code": txn.VoucherCode,
			"expiry_date":  txn.ExpiryDate,
		})
	}
}
