package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"voucher-api/internal/models"
	"voucher-api/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Voucher{}, &models.Transaction{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newCallbackRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	vouchers := services.NewVoucherService(db)
	transactions := services.NewTransactionService(db)
	matcher := services.NewMatcher(transactions)
	engine := services.NewAllocationService(vouchers, transactions, matcher, nil, nil, 30*24*time.Hour)

	r := gin.New()
	r.POST("/api/payment/callback", PaymentCallbackHandler(engine))
	return r, db
}

func TestPaymentCallback_SuccessfulPayment(t *testing.T) {
	r, db := newCallbackRouter(t)

	db.Create(&models.Voucher{Code: "TEA-001", ProductName: "Tea", Amount: 10000})
	db.Create(&models.Transaction{
		TempID: "tmp-1", Email: "a@x.com", Name: "A",
		Amount: 10000, ProductName: "Tea", Status: models.StatusPending,
	})

	body := `{"id":"TX1","amount":10000,"status":"SUCCESSFUL","sender_email":"a@x.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("gateway callbacks must be acknowledged with 200, got %d", w.Code)
	}

	var txn models.Transaction
	if err := db.Where("temp_id = ?", "tmp-1").First(&txn).Error; err != nil {
		t.Fatalf("transaction missing: %v", err)
	}
	if txn.Status != models.StatusSuccessful || txn.VoucherCode == nil || *txn.VoucherCode != "TEA-001" {
		t.Fatalf("callback did not allocate: %+v", txn)
	}
}

func TestPaymentCallback_FormEncodedDataPayload(t *testing.T) {
	r, db := newCallbackRouter(t)

	db.Create(&models.Voucher{Code: "TEA-001", ProductName: "Tea", Amount: 10000})
	db.Create(&models.Transaction{
		TempID: "tmp-1", Email: "a@x.com", Name: "A",
		Amount: 10000, ProductName: "Tea", Status: models.StatusPending,
	})

	form := url.Values{}
	form.Set("data", `{"id":7001,"bill_link_id":42,"amount":10000,"status":"successful","sender_email":"a@x.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var txn models.Transaction
	if err := db.Where("temp_id = ?", "tmp-1").First(&txn).Error; err != nil {
		t.Fatalf("transaction missing: %v", err)
	}
	if txn.Status != models.StatusSuccessful {
		t.Fatalf("form-encoded payload not normalized: %+v", txn)
	}
	if txn.TransactionID == nil || *txn.TransactionID != "7001" {
		t.Fatalf("numeric gateway id not normalized: %v", txn.TransactionID)
	}
	if txn.BillLinkID == nil || *txn.BillLinkID != 42 {
		t.Fatalf("bill link id not recorded: %v", txn.BillLinkID)
	}
}

func TestPaymentCallback_MalformedBodyStillAcknowledged(t *testing.T) {
	r, _ := newCallbackRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("malformed callbacks must still be acknowledged with 200 to avoid retry storms, got %d", w.Code)
	}
}

func TestPaymentCallback_UnknownStatusStillAcknowledged(t *testing.T) {
	r, _ := newCallbackRouter(t)

	body := `{"id":"TX1","amount":10000,"status":"BOGUS","sender_email":"a@x.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
