package ports

import (
	"context"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
)

// OrderPublisher hands a committed order to the worker queue.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, orderID int64, items []contracts.ItemPayload) error
}

// Cache is a best-effort JSON cache. Get reports a miss for any failure;
// Set never fails. A ttl <= 0 uses the cache's default.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}
