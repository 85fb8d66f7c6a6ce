package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gamestore-engine/internal/models"
)

// inventoryRow maps the inventory table; exactly one of
// game_id/product_id is set per row, unique on (store_id, item).
type inventoryRow struct {
	StoreID      int64         `db:"store_id"`
	GameID       sql.NullInt64 `db:"game_id"`
	ProductID    sql.NullInt64 `db:"product_id"`
	Quantity     int           `db:"quantity"`
	ReorderLevel int           `db:"reorder_level"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

func (r *inventoryRow) toModel() models.InventoryRecord {
	rec := models.InventoryRecord{
		StoreID:      r.StoreID,
		Quantity:     r.Quantity,
		ReorderLevel: r.ReorderLevel,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.GameID.Valid {
		rec.Item = models.GameRef(r.GameID.Int64)
	} else {
		rec.Item = models.ProductRef(r.ProductID.Int64)
	}
	return rec
}

// GetInventory retrieves the record for one (store, item) pair
func (s *Store) GetInventory(ctx context.Context, storeID int64, item models.ItemRef) (*models.InventoryRecord, error) {
	var row inventoryRow
	query := fmt.Sprintf(
		`SELECT store_id, game_id, product_id, quantity, reorder_level, updated_at
		 FROM inventory WHERE store_id = $1 AND %s = $2`, refColumn(item))
	err := s.db.GetContext(ctx, &row, query, storeID, item.ID)
	if err == sql.ErrNoRows {
		return nil, models.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := row.toModel()
	return &rec, nil
}

// ListInventoryByStore retrieves every record for a store
func (s *Store) ListInventoryByStore(ctx context.Context, storeID int64) ([]models.InventoryRecord, error) {
	var rows []inventoryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT store_id, game_id, product_id, quantity, reorder_level, updated_at
		 FROM inventory WHERE store_id = $1 ORDER BY game_id, product_id`, storeID)
	if err != nil {
		return nil, err
	}
	records := make([]models.InventoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records, nil
}

// Restock creates the (store, item) record or tops it up
func (s *Store) Restock(ctx context.Context, storeID int64, item models.ItemRef, qty, reorderLevel int) error {
	column := refColumn(item)
	query := fmt.Sprintf(
		`UPDATE inventory SET quantity = quantity + $1, reorder_level = $2, updated_at = NOW()
		 WHERE store_id = $3 AND %s = $4`, column)
	res, err := s.db.ExecContext(ctx, query, qty, reorderLevel, storeID, item.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	insert := fmt.Sprintf(
		`INSERT INTO inventory (store_id, %s, quantity, reorder_level, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())`, column)
	_, err = s.db.ExecContext(ctx, insert, storeID, item.ID, qty, reorderLevel)
	return err
}
