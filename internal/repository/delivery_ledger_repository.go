package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryLedgerRepository remembers which (event, student, channel) triples
// were already handed to a delivery adapter.
type DeliveryLedgerRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeliveryLedgerRepository constructs the ledger. A nil client admits
// every claim.
func NewDeliveryLedgerRepository(client *redis.Client, ttl time.Duration) *DeliveryLedgerRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DeliveryLedgerRepository{client: client, ttl: ttl}
}

// Claim reserves key. It returns false when another worker already holds it.
func (r *DeliveryLedgerRepository) Claim(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim %s: %w", key, err)
	}
	return ok, nil
}
