package redisx

import "time"

const (
	// Idempotency place order: idem:order:place:{seller_id}:{key} -> order_id,
	// or "pending" while the placement runs.
	KeyIdemOrderPlace = "idem:order:place:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sorted set of low-stock product ids, score = stock level.
	KeyLowStock = "stock:low"
)

var (
	TTLIdempotency        = 24 * time.Hour
	TTLIdempotencyPending = time.Minute
	TTLDedup              = 48 * time.Hour
)
