package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// pendingOrder marks a key whose placement has not finished yet.
const pendingOrder = "pending"

// Orders remembers which order an idempotency key produced.
type Orders struct{ RDB *redis.Client }

// ClaimOrder reserves key with a pending marker. When the key is already
// taken it returns the stored order id, or "" while that placement is still
// running.
func (o *Orders) ClaimOrder(ctx context.Context, key string) (string, bool, error) {
	k := fmt.Sprintf(KeyIdemOrderPlace, key)
	ok, err := o.RDB.SetNX(ctx, k, pendingOrder, TTLIdempotencyPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	id, err := o.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return o.ClaimOrder(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	if id == pendingOrder {
		return "", false, nil
	}
	return id, false, nil
}

func (o *Orders) RememberOrder(ctx context.Context, key, orderID string) error {
	return o.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, key), orderID, TTLIdempotency).Err()
}

func (o *Orders) ReleaseOrder(ctx context.Context, key string) error {
	return o.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderPlace, key)).Err()
}

// Dedup marks an event as seen. It reports false when the event was already
// processed by service.
func Dedup(ctx context.Context, rdb *redis.Client, service, eventID string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
}

// LowStock tracks products whose stock is at or below a threshold.
type LowStock struct{ RDB *redis.Client }

func (l *LowStock) Flag(ctx context.Context, productID string, stock int) error {
	return l.RDB.ZAdd(ctx, KeyLowStock, redis.Z{Score: float64(stock), Member: productID}).Err()
}

func (l *LowStock) Clear(ctx context.Context, productID string) error {
	return l.RDB.ZRem(ctx, KeyLowStock, productID).Err()
}

// LowStock lists flagged product ids, lowest stock first.
func (l *LowStock) LowStock(ctx context.Context) ([]string, error) {
	return l.RDB.ZRange(ctx, KeyLowStock, 0, -1).Result()
}

// ForgetDedup removes the mark set by Dedup so a failed event can be retried.
func ForgetDedup(ctx context.Context, rdb *redis.Client, service, eventID string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err()
}
