package service

import (
	"context"
	"fmt"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"
	"gamestore-engine/internal/util"

	"go.uber.org/zap"
)

// InventoryService is the read/restock face of the inventory ledger.
// The atomic decrement and restore paths run inside order and return
// transactions; this service covers availability checks, restocking,
// and keeping the Redis fast path warm.
type InventoryService struct {
	store      ports.Store
	stockCache ports.StockCache
	logger     *zap.Logger
}

// NewInventoryService creates a new inventory service. stockCache may
// be nil.
func NewInventoryService(store ports.Store, stockCache ports.StockCache) *InventoryService {
	return &InventoryService{
		store:      store,
		stockCache: stockCache,
		logger:     util.GetLogger(),
	}
}

// CheckAvailable reports whether a record exists with at least qty
// units. The cache answers first; the store on a miss.
func (s *InventoryService) CheckAvailable(ctx context.Context, storeID int64, item models.ItemRef, qty int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.CheckAvailable")
	defer span.End()

	if s.stockCache != nil {
		enough, known, err := s.stockCache.CheckStock(ctx, storeID, item, qty)
		if err == nil && known {
			return enough, nil
		}
		if err != nil {
			s.logger.Warn("Stock cache check failed, falling back to store",
				zap.Int64("store_id", storeID),
				zap.String("item", item.String()),
				zap.Error(err))
		}
	}

	rec, err := s.store.GetInventory(ctx, storeID, item)
	if err != nil {
		if err == models.ErrInventoryNotFound {
			return false, nil
		}
		return false, err
	}
	return rec.Quantity >= qty, nil
}

// Restock creates or tops up a (store, item) record.
func (s *InventoryService) Restock(ctx context.Context, storeID int64, item models.ItemRef, qty, reorderLevel int) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Restock")
	defer span.End()

	if qty <= 0 {
		return models.ErrItemQuantityInvalid
	}
	if err := s.store.Restock(ctx, storeID, item, qty, reorderLevel); err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	s.logger.Info("Inventory restocked",
		zap.Int64("store_id", storeID),
		zap.String("item", item.String()),
		zap.Int("quantity", qty))

	if s.stockCache != nil {
		rec, err := s.store.GetInventory(ctx, storeID, item)
		if err == nil {
			if err := s.stockCache.InitStock(ctx, storeID, item, rec.Quantity); err != nil {
				s.logger.Warn("Failed to refresh stock cache after restock", zap.Error(err))
			}
		}
	}
	return nil
}

// GetInventory retrieves the record for one (store, item) pair.
func (s *InventoryService) GetInventory(ctx context.Context, storeID int64, item models.ItemRef) (*models.InventoryRecord, error) {
	return s.store.GetInventory(ctx, storeID, item)
}

// ListByStore lists every record for a store.
func (s *InventoryService) ListByStore(ctx context.Context, storeID int64) ([]models.InventoryRecord, error) {
	return s.store.ListInventoryByStore(ctx, storeID)
}

// SyncStoreToCache warms the Redis fast path with a store's current
// quantities.
func (s *InventoryService) SyncStoreToCache(ctx context.Context, storeID int64) error {
	if s.stockCache == nil {
		return nil
	}
	s.logger.Info("Starting inventory sync to cache", zap.Int64("store_id", storeID))

	records, err := s.store.ListInventoryByStore(ctx, storeID)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}
	for _, rec := range records {
		if err := s.stockCache.InitStock(ctx, storeID, rec.Item, rec.Quantity); err != nil {
			s.logger.Error("Failed to init cached stock",
				zap.String("item", rec.Item.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Inventory sync completed", zap.Int("count", len(records)))
	return nil
}
