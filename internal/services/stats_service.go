package services

import (
	"context"
	"encoding/json"
	"time"
	"voucher-api/internal/models"
	"voucher-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

const (
	statsCacheKey = "voucher_stats"
	statsCacheTTL = 30 * time.Second
)

// StatsService serves the operator inventory counts, cached in Redis with
// a short TTL since the dashboard polls far more often than counts change.
type StatsService struct {
	vouchers *VoucherService
	client   *redis.Client
}

// NewStatsService creates a new stats service. client may be nil, in which
// case every read goes to the database.
func NewStatsService(vouchers *VoucherService, client *redis.Client) *StatsService {
	return &StatsService{vouchers: vouchers, client: client}
}

// ProductCounts returns total/available/used voucher counts per product.
func (s *StatsService) ProductCounts() ([]models.ProductStats, error) {
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if cached, err := s.client.Get(ctx, statsCacheKey).Result(); err == nil {
			var stats []models.ProductStats
			if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
				return stats, nil
			}
		} else if err != redis.Nil {
			logging.Errorf("Failed to read voucher stats cache: %v", err)
		}
	}

	stats, err := s.vouchers.CountsByProduct()
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		if payload, err := json.Marshal(stats); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.client.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
				logging.Errorf("Failed to write voucher stats cache: %v", err)
			}
		}
	}

	return stats, nil
}

// Invalidate drops the cached counts, called after inventory loading.
func (s *StatsService) Invalidate() {
	if s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, statsCacheKey).Err(); err != nil {
		logging.Errorf("Failed to invalidate voucher stats cache: %v", err)
	}
}
