package store

import (
	"context"
	"database/sql"
	"time"

	"gamestore-engine/internal/models"

	"github.com/shopspring/decimal"
)

// orderRow maps the orders table; store_id and idempotency_key are
// nullable.
type orderRow struct {
	ID             int64           `db:"id"`
	CustomerID     int64           `db:"customer_id"`
	StoreID        sql.NullInt64   `db:"store_id"`
	Status         string          `db:"status"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	Tax            decimal.Decimal `db:"tax"`
	Discount       decimal.Decimal `db:"discount"`
	Total          decimal.Decimal `db:"total"`
	PaymentMethod  string          `db:"payment_method"`
	IdempotencyKey sql.NullString  `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *orderRow) toModel() *models.Order {
	order := &models.Order{
		ID:             r.ID,
		CustomerID:     r.CustomerID,
		Status:         models.OrderStatus(r.Status),
		Subtotal:       r.Subtotal,
		Tax:            r.Tax,
		Discount:       r.Discount,
		Total:          r.Total,
		PaymentMethod:  r.PaymentMethod,
		IdempotencyKey: r.IdempotencyKey.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.StoreID.Valid {
		storeID := r.StoreID.Int64
		order.StoreID = &storeID
	}
	return order
}

// orderItemRow maps order_items; exactly one of game_id/product_id is
// set.
type orderItemRow struct {
	ID        int64           `db:"id"`
	OrderID   int64           `db:"order_id"`
	GameID    sql.NullInt64   `db:"game_id"`
	ProductID sql.NullInt64   `db:"product_id"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Discount  decimal.Decimal `db:"discount"`
	LineTotal decimal.Decimal `db:"line_total"`
}

func (r *orderItemRow) toModel() models.OrderItem {
	item := models.OrderItem{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Discount:  r.Discount,
		LineTotal: r.LineTotal,
	}
	if r.GameID.Valid {
		item.Item = models.GameRef(r.GameID.Int64)
	} else {
		item.Item = models.ProductRef(r.ProductID.Int64)
	}
	return item
}

const orderColumns = `id, customer_id, store_id, status, subtotal, tax, discount, total,
	payment_method, idempotency_key, created_at, updated_at`

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key;
// (nil, nil) when no order carries the key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var rows []orderItemRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, order_id, game_id, product_id, quantity, unit_price, discount, line_total
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]models.OrderItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toModel())
	}
	return items, nil
}
