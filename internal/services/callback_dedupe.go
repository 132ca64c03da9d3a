package services

import (
	"context"
	"fmt"
	"time"
	"voucher-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// CallbackDedupe tracks recently seen gateway callback deliveries in Redis
// so replays can be logged and observed. It is a fast-path observer only:
// correctness against duplicates rests on the store's conditional updates,
// so Redis being down degrades to "every delivery looks first".
type CallbackDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCallbackDedupe creates a new callback dedupe tracker
func NewCallbackDedupe(client *redis.Client) *CallbackDedupe {
	return &CallbackDedupe{
		client: client,
		ttl:    10 * time.Minute,
	}
}

// FirstDelivery records the (gateway id, status) pair and reports whether
// this is the first time it was seen inside the tracking window. Fails
// open on Redis errors.
func (d *CallbackDedupe) FirstDelivery(gatewayID, status string) bool {
	if d.client == nil || gatewayID == "" {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("callback_seen:%s:%s", gatewayID, status)
	first, err := d.client.SetNX(ctx, key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		logging.Errorf("Callback dedupe check failed for %s: %v", key, err)
		return true
	}
	return first
}
