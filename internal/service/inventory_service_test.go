package service

import (
	"context"
	"errors"
	"testing"

	"gamestore-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStockCache answers from a map and records decrements/restores.
type fakeStockCache struct {
	quantities map[string]int
	failing    bool
}

func newFakeStockCache() *fakeStockCache {
	return &fakeStockCache{quantities: make(map[string]int)}
}

func (f *fakeStockCache) key(storeID int64, item models.ItemRef) string {
	return item.String()
}

func (f *fakeStockCache) CheckStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) (bool, bool, error) {
	if f.failing {
		return false, false, errors.New("cache down")
	}
	current, ok := f.quantities[f.key(storeID, item)]
	if !ok {
		return false, false, nil
	}
	return current >= qty, true, nil
}

func (f *fakeStockCache) DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	f.quantities[f.key(storeID, item)] -= qty
	return nil
}

func (f *fakeStockCache) RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	f.quantities[f.key(storeID, item)] += qty
	return nil
}

func (f *fakeStockCache) InitStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	f.quantities[f.key(storeID, item)] = qty
	return nil
}

func TestCheckAvailableCacheFastPath(t *testing.T) {
	ms := newTestStore()
	cache := newFakeStockCache()
	require.NoError(t, cache.InitStock(context.Background(), 1, models.GameRef(10), 2))
	svc := NewInventoryService(ms, cache)
	ctx := context.Background()

	// The cache answers without touching the store's quantity of 5.
	ok, err := svc.CheckAvailable(ctx, 1, models.GameRef(10), 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAvailable(ctx, 1, models.GameRef(10), 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAvailableFallsBackToStore(t *testing.T) {
	ms := newTestStore()
	cache := newFakeStockCache()
	cache.failing = true
	svc := NewInventoryService(ms, cache)
	ctx := context.Background()

	// Cache errors are swallowed; the store answers.
	ok, err := svc.CheckAvailable(ctx, 1, models.GameRef(10), 5)
	require.NoError(t, err)
	assert.True(t, ok)

	// Missing records mean no stock, not an error.
	ok, err = svc.CheckAvailable(ctx, 2, models.GameRef(10), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestockRefreshesCache(t *testing.T) {
	ms := newTestStore()
	cache := newFakeStockCache()
	svc := NewInventoryService(ms, cache)
	ctx := context.Background()

	require.NoError(t, svc.Restock(ctx, 1, models.GameRef(10), 5, 3))

	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 10, cache.quantities["game:10"])

	assert.ErrorIs(t, svc.Restock(ctx, 1, models.GameRef(10), 0, 3), models.ErrItemQuantityInvalid)
}

func TestSyncStoreToCache(t *testing.T) {
	ms := newTestStore()
	cache := newFakeStockCache()
	svc := NewInventoryService(ms, cache)

	require.NoError(t, svc.SyncStoreToCache(context.Background(), 1))
	assert.Equal(t, 5, cache.quantities["game:10"])
	assert.Equal(t, 5, cache.quantities["product:20"])
}
