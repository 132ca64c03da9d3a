package services

import (
	"time"
	"voucher-api/pkg/logging"
)

// ReaperService reclaims inventory from purchases whose payment never
// arrived. It is triggered on a schedule from outside and processes in
// bounded batches; every step is idempotent, so overlapping or repeated
// sweeps (and re-runs after a mid-batch crash) are harmless.
type ReaperService struct {
	vouchers     *VoucherService
	transactions *TransactionService
	grace        time.Duration
	batchSize    int
}

// NewReaperService creates a new reaper service
func NewReaperService(vouchers *VoucherService, transactions *TransactionService, grace time.Duration, batchSize int) *ReaperService {
	if batchSize < 1 {
		batchSize = 100
	}
	return &ReaperService{
		vouchers:     vouchers,
		transactions: transactions,
		grace:        grace,
		batchSize:    batchSize,
	}
}

// ReaperStats reports what one sweep did.
type ReaperStats struct {
	Scanned  int   `json:"scanned"`
	Released int   `json:"released"`
	Expired  int64 `json:"expired"`
}

// Run performs one sweep: PENDING transactions older than the grace window
// have any bound voucher released, then get flipped to EXPIRED. Releases
// are set-based per batch and always precede the status flip, so an
// interruption leaves vouchers free rather than claimed by expired rows.
func (s *ReaperService) Run() (*ReaperStats, error) {
	cutoff := time.Now().Add(-s.grace)
	stats := &ReaperStats{}

	for {
		batch, err := s.transactions.FindStalePending(cutoff, s.batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}
		stats.Scanned += len(batch)

		ids := make([]uint, 0, len(batch))
		codes := make([]string, 0, len(batch))
		for _, txn := range batch {
			ids = append(ids, txn.ID)
			if txn.VoucherCode != nil {
				codes = append(codes, *txn.VoucherCode)
			}
		}

		if err := s.vouchers.ReleaseBatch(codes); err != nil {
			return stats, err
		}
		stats.Released += len(codes)

		expired, err := s.transactions.ExpireBatch(ids)
		if err != nil {
			return stats, err
		}
		stats.Expired += expired

		if expired == 0 {
			// Every row in the batch resolved between scan and flip;
			// stop rather than rescan the same window.
			break
		}
		if len(batch) < s.batchSize {
			break
		}
	}

	if stats.Scanned > 0 {
		logging.Infof("Reaper swept %d stale transactions (%d vouchers released, %d expired)",
			stats.Scanned, stats.Released, stats.Expired)
	}

	return stats, nil
}
