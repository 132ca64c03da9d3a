package services

import (
	"fmt"
	"time"
	"voucher-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionService provides ledger operations on purchase transactions.
// Rows are append-mostly: nothing here deletes, terminal states are only
// ever set through the conditional updates below.
type TransactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new transaction service
func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{db: db}
}

// CreatePending creates the local purchase record before the gateway
// redirect happens. The returned transaction carries a generated temp_id
// the client keeps for polling and the gateway can echo back.
func (s *TransactionService) CreatePending(email, name, productName string, amount int64, discountedAmount *int64) (*models.Transaction, error) {
	txn := &models.Transaction{
		TempID:           uuid.NewString(),
		Email:            email,
		Name:             name,
		Amount:           amount,
		DiscountedAmount: discountedAmount,
		ProductName:      productName,
		Status:           models.StatusPending,
	}
	if err := s.db.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending transaction: %w", err)
	}
	return txn, nil
}

// Create inserts a transaction as-is. Used by the defensive path when a
// callback arrives for a purchase this service never saw.
func (s *TransactionService) Create(txn *models.Transaction) error {
	if txn.TempID == "" {
		txn.TempID = uuid.NewString()
	}
	if err := s.db.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID returns the transaction with the given primary key
func (s *TransactionService) GetByID(id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.First(&txn, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetByTempID returns the transaction with the given client correlation id
func (s *TransactionService) GetByTempID(tempID string) (*models.Transaction, error) {
	return s.getOne("temp_id = ?", tempID)
}

// GetByTransactionID returns the transaction with the given gateway id
func (s *TransactionService) GetByTransactionID(transactionID string) (*models.Transaction, error) {
	return s.getOne("transaction_id = ?", transactionID)
}

// GetByBillLinkID returns the most recent transaction for the gateway's
// secondary bill identifier.
func (s *TransactionService) GetByBillLinkID(billLinkID int64) (*models.Transaction, error) {
	return s.getOne("bill_link_id = ?", billLinkID)
}

// FindPendingByEmailAmount is the heuristic fallback lookup: the newest
// PENDING row for this payer and amount that has not yet been tagged with a
// gateway id. Best-effort only; ambiguous when one payer has two identical
// pending purchases, which is why the temp_id path is tried first.
func (s *TransactionService) FindPendingByEmailAmount(email string, amount int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.Where("email = ? AND amount = ? AND status = ? AND transaction_id IS NULL",
		email, amount, models.StatusPending).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (s *TransactionService) getOne(query string, args ...interface{}) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Where(query, args...).Order("created_at DESC").First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// BindVoucher marks the transaction SUCCESSFUL with the claimed voucher,
// recording the gateway identifiers in the same write. Guarded by
// status=PENDING and an empty voucher_code: of two racing deliveries only
// one binds, the other sees RowsAffected 0 and must compensate by
// releasing its claim. Returns whether this call performed the bind.
func (s *TransactionService) BindVoucher(id uint, voucherCode string, gatewayID string, billLinkID *int64, usedAt time.Time, expiry time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":       models.StatusSuccessful,
		"voucher_code": voucherCode,
		"used_at":      &usedAt,
		"expiry_date":  &expiry,
	}
	if gatewayID != "" {
		updates["transaction_id"] = gatewayID
	}
	if billLinkID != nil {
		updates["bill_link_id"] = *billLinkID
	}
	result := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND voucher_code IS NULL", id, models.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to bind voucher to transaction %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkSuccessfulNoVoucher records a successful payment for which no
// inventory was available. Payment success is authoritative over inventory,
// so the transaction still terminates SUCCESSFUL, with a note for operators.
func (s *TransactionService) MarkSuccessfulNoVoucher(id uint, gatewayID string, billLinkID *int64, note string) (bool, error) {
	updates := map[string]interface{}{
		"status": models.StatusSuccessful,
		"note":   note,
	}
	if gatewayID != "" {
		updates["transaction_id"] = gatewayID
	}
	if billLinkID != nil {
		updates["bill_link_id"] = *billLinkID
	}
	result := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark transaction %d successful: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkTerminal sets a terminal negative status (CANCELLED, FAILED or
// EXPIRED) and clears any voucher binding. The caller releases the voucher
// first; clearing the reference and flipping the status happen together so
// a voucher_code is never silently overwritten, only cleared alongside its
// release. Idempotent: an already-terminal row is left untouched.
func (s *TransactionService) MarkTerminal(id uint, status string, gatewayID string, billLinkID *int64) (bool, error) {
	updates := map[string]interface{}{
		"status":       status,
		"voucher_code": nil,
	}
	if gatewayID != "" {
		updates["transaction_id"] = gatewayID
	}
	if billLinkID != nil {
		updates["bill_link_id"] = *billLinkID
	}
	result := s.db.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []string{models.StatusPending, models.StatusSuccessful}).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to set transaction %d to %s: %w", id, status, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindStalePending returns up to limit PENDING transactions created before
// the cutoff, oldest first. Reaper input.
func (s *TransactionService) FindStalePending(cutoff time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending transactions: %w", err)
	}
	return txns, nil
}

// ExpireBatch flips a set of transactions to EXPIRED, guarded by
// status=PENDING so rows that resolved between scan and flip are skipped.
func (s *TransactionService) ExpireBatch(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.Model(&models.Transaction{}).
		Where("id IN ? AND status = ?", ids, models.StatusPending).
		Updates(map[string]interface{}{
			"status":       models.StatusExpired,
			"voucher_code": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire transaction batch: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListFilter narrows the admin transaction listing.
type ListFilter struct {
	Status   string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// List returns a filtered, paginated page of transactions plus the total
// row count for the filter. Read-only; the operator surface never mutates
// status through this service.
func (s *TransactionService) List(filter ListFilter) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR product_name LIKE ? OR name LIKE ?", like, like, like)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var txns []models.Transaction
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, total, nil
}
