package services

import (
	"testing"
	"time"
	"voucher-api/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database. A single
// connection keeps the in-memory store alive for the whole test and
// serializes concurrent writers, so the conditional-update semantics
// behave like the production store's row-level compare-and-swap.
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

func seedVoucher(t *testing.T, db *gorm.DB, code, product string, amount int64) *models.Voucher {
	t.Helper()
	voucher := &models.Voucher{
		Code:        code,
		ProductName: product,
		Amount:      amount,
	}
	if err := db.Create(voucher).Error; err != nil {
		t.Fatalf("failed to seed voucher %s: %v", code, err)
	}
	return voucher
}

func seedPending(t *testing.T, db *gorm.DB, tempID, email, product string, amount int64, createdAt time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		TempID:      tempID,
		Email:       email,
		Name:        "Test Buyer",
		Amount:      amount,
		ProductName: product,
		Status:      models.StatusPending,
	}
	txn.CreatedAt = createdAt
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to seed transaction %s: %v", tempID, err)
	}
	return txn
}

func getVoucher(t *testing.T, db *gorm.DB, code string) *models.Voucher {
	t.Helper()
	var voucher models.Voucher
	if err := db.Where("code = ?", code).First(&voucher).Error; err != nil {
		t.Fatalf("failed to load voucher %s: %v", code, err)
	}
	return &voucher
}

func getTransaction(t *testing.T, db *gorm.DB, id uint) *models.Transaction {
	t.Helper()
	var txn models.Transaction
	if err := db.First(&txn, id).Error; err != nil {
		t.Fatalf("failed to load transaction %d: %v", id, err)
	}
	return &txn
}

// fakeNotifier records notifications instead of sending email.
type fakeNotifier struct {
	calls      int
	lastCode   string
	failalways bool
}

func (f *fakeNotifier) SendVoucherEmail(recipient, name string, voucher *models.Voucher, txn *models.Transaction) error {
	f.calls++
	if voucher != nil {
		f.lastCode = voucher.Code
	}
	if f.failalways {
		return errNotify
	}
	return nil
}

var errNotify = &notifyError{}

type notifyError struct{}

func (*notifyError) Error() string { return "smtp unreachable" }
