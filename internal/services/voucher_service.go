package services

import (
	"fmt"
	"time"
	"voucher-api/internal/models"
	"voucher-api/pkg/logging"

	"gorm.io/gorm"
)

// VoucherService provides inventory operations on the voucher pool.
//
// The used flag is never read-then-written non-atomically: Claim is a
// conditional update guarded by used=false, Release is an unconditional
// update issued only by the transaction that owns the binding.
type VoucherService struct {
	db *gorm.DB
}

// NewVoucherService creates a new voucher service
func NewVoucherService(db *gorm.DB) *VoucherService {
	return &VoucherService{db: db}
}

// claimAttempts bounds how many candidates one allocation tries before
// treating the product as out of stock. One retry after a lost race.
const claimAttempts = 2

// ClaimForProduct atomically claims one available voucher of the given
// product for the payer. Candidate selection takes the lowest-id available
// row; the claim itself only succeeds if used=false still holds at write
// time, so concurrent claimers racing for the same row resolve to exactly
// one winner. Returns (nil, nil) when no inventory is available.
func (s *VoucherService) ClaimForProduct(productName, payerEmail string, validity time.Duration) (*models.Voucher, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		var candidate models.Voucher
		err := s.db.Where("product_name = ? AND used = ?", productName, false).
			Order("id ASC").
			First(&candidate).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to select voucher candidate: %w", err)
		}

		now := time.Now()
		expiry := now.Add(validity)
		result := s.db.Model(&models.Voucher{}).
			Where("code = ? AND used = ?", candidate.Code, false).
			Updates(map[string]interface{}{
				"used":        true,
				"used_by":     payerEmail,
				"used_at":     &now,
				"expiry_date": &expiry,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to claim voucher %s: %w", candidate.Code, result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost the race to a concurrent claimer; pick a fresh candidate.
			logging.Infof("Lost claim race for voucher %s, retrying", candidate.Code)
			continue
		}

		candidate.Used = true
		candidate.UsedBy = &payerEmail
		candidate.UsedAt = &now
		candidate.ExpiryDate = &expiry
		return &candidate, nil
	}

	return nil, nil
}

// Release returns a claimed voucher to the available pool and clears its
// usage metadata. Unconditional: the caller owns the binding, so there is
// no race to guard against, and re-releasing an already-free voucher is a
// harmless no-op.
func (s *VoucherService) Release(code string) error {
	result := s.db.Model(&models.Voucher{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"used":        false,
			"used_by":     nil,
			"used_at":     nil,
			"expiry_date": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release voucher %s: %w", code, result.Error)
	}
	return nil
}

// ReleaseBatch releases a set of vouchers in one statement. Used by the
// reaper so a sweep issues one update per batch instead of one per row.
func (s *VoucherService) ReleaseBatch(codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	result := s.db.Model(&models.Voucher{}).
		Where("code IN ?", codes).
		Updates(map[string]interface{}{
			"used":        false,
			"used_by":     nil,
			"used_at":     nil,
			"expiry_date": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release voucher batch: %w", result.Error)
	}
	return nil
}

// GetByCode returns the voucher with the given code
func (s *VoucherService) GetByCode(code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := s.db.Where("code = ?", code).First(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// HasAvailable reports whether the product has at least one unclaimed voucher
func (s *VoucherService) HasAvailable(productName string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Voucher{}).
		Where("product_name = ? AND used = ?", productName, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateBatch loads new vouchers into the inventory pool
func (s *VoucherService) CreateBatch(vouchers []models.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}
	if err := s.db.Create(&vouchers).Error; err != nil {
		return fmt.Errorf("failed to create vouchers: %w", err)
	}
	return nil
}

// CountsByProduct returns total/available/used counts per product for the
// operator dashboard.
func (s *VoucherService) CountsByProduct() ([]models.ProductStats, error) {
	var stats []models.ProductStats
	err := s.db.Model(&models.Voucher{}).
		Select("product_name, COUNT(*) as total, " +
			"SUM(CASE WHEN used THEN 0 ELSE 1 END) as available, " +
			"SUM(CASE WHEN used THEN 1 ELSE 0 END) as used").
		Group("product_name").
		Order("product_name ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate voucher counts: %w", err)
	}
	return stats, nil
}
