package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"

	"github.com/go-redis/redis/v8"
)

var _ ports.StockCache = (*Client)(nil)

//go:embed scripts/check_stock.lua
var checkStockScript string

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

//go:embed scripts/restore_stock.lua
var restoreStockScript string

// Client is the Redis-backed stock availability cache. It is a fast
// path only; the database stays authoritative and every unknown answer
// falls through to it.
type Client struct {
	rdb             *redis.Client
	checkScript     *redis.Script
	decrementScript *redis.Script
	restoreScript   *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		checkScript:     redis.NewScript(checkStockScript),
		decrementScript: redis.NewScript(decrementStockScript),
		restoreScript:   redis.NewScript(restoreStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(storeID int64, item models.ItemRef) string {
	return fmt.Sprintf("inventory:%d:%s:%d", storeID, item.Kind, item.ID)
}

// CheckStock reports whether the cached quantity covers qty. known is
// false when the key is absent, in which case the caller must consult
// the database.
func (c *Client) CheckStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) (enough, known bool, err error) {
	result, err := c.checkScript.Run(ctx, c.rdb, []string{stockKey(storeID, item)}, qty).Result()
	if err != nil {
		return false, false, fmt.Errorf("check stock script failed: %w", err)
	}

	answer, ok := result.(int64)
	if !ok {
		return false, false, fmt.Errorf("unexpected script result type")
	}

	switch answer {
	case -1:
		return false, false, nil
	case 0:
		return false, true, nil
	default:
		return true, true, nil
	}
}

// DecrementStock lowers the cached quantity after a committed sale.
// A missing key is left missing; the next check falls through.
func (c *Client) DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	_, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(storeID, item)}, qty).Result()
	if err != nil {
		return fmt.Errorf("decrement stock script failed: %w", err)
	}
	return nil
}

// RestoreStock raises the cached quantity after a committed return.
func (c *Client) RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	_, err := c.restoreScript.Run(ctx, c.rdb, []string{stockKey(storeID, item)}, qty).Result()
	if err != nil {
		return fmt.Errorf("restore stock script failed: %w", err)
	}
	return nil
}

// InitStock seeds the cached quantity from the authoritative record
func (c *Client) InitStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	return c.rdb.Set(ctx, stockKey(storeID, item), qty, 0).Err()
}
