package store

import (
	"context"
	"database/sql"
	"fmt"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// pgCheckViolation is the postgres error code for a CHECK constraint
// breach; on the inventory table that means a write tried to take
// quantity negative.
const pgCheckViolation = "23514"

// WithinTx runs fn inside one database transaction. Any error from fn
// rolls everything back and is returned unchanged.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	dbTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&sqlTx{tx: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit()
}

// sqlTx implements ports.Tx over one sqlx transaction.
type sqlTx struct {
	tx *sqlx.Tx
}

// GetOrderForUpdate locks and returns an order row.
func (t *sqlTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var row orderRow
	err := t.tx.GetContext(ctx, &row,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetCustomerForUpdate locks and returns a customer row.
func (t *sqlTx) GetCustomerForUpdate(ctx context.Context, customerID int64) (*models.Customer, error) {
	var customer models.Customer
	err := t.tx.GetContext(ctx, &customer,
		`SELECT id, name, date_of_birth, age_verified, loyalty_points, total_spent, created_at
		 FROM customers WHERE id = $1 FOR UPDATE`, customerID)
	if err == sql.ErrNoRows {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetReturnForUpdate locks and returns a return row.
func (t *sqlTx) GetReturnForUpdate(ctx context.Context, returnID int64) (*models.Return, error) {
	var ret models.Return
	err := t.tx.GetContext(ctx, &ret,
		`SELECT id, order_id, customer_id, return_date, refund_amount, status, created_at
		 FROM returns WHERE id = $1 FOR UPDATE`, returnID)
	if err == sql.ErrNoRows {
		return nil, models.ErrReturnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetOrderItems retrieves all items for an order inside the
// transaction.
func (t *sqlTx) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var rows []orderItemRow
	err := t.tx.SelectContext(ctx, &rows,
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

// DecrementStock re-validates availability and subtracts qty in one
// statement. The conditional update takes the row lock, so the loser
// of a concurrent race sees the post-commit quantity and fails with
// InsufficientStockError.
func (t *sqlTx) DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	column := refColumn(item)
	query := fmt.Sprintf(
		`UPDATE inventory SET quantity = quantity - $1, updated_at = NOW()
		 WHERE store_id = $2 AND %s = $3 AND quantity >= $1`, column)
	res, err := t.tx.ExecContext(ctx, query, qty, storeID, item.ID)
	if err != nil {
		return mapInventoryError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	available := 0
	lookup := fmt.Sprintf(
		"SELECT quantity FROM inventory WHERE store_id = $1 AND %s = $2 FOR UPDATE", column)
	err = t.tx.GetContext(ctx, &available, lookup, storeID, item.ID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	return &models.InsufficientStockError{
		StoreID:   storeID,
		Item:      item,
		Available: available,
		Requested: qty,
	}
}

// RestoreStock adds qty back to the record.
func (t *sqlTx) RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error {
	column := refColumn(item)
	query := fmt.Sprintf(
		`UPDATE inventory SET quantity = quantity + $1, updated_at = NOW()
		 WHERE store_id = $2 AND %s = $3`, column)
	res, err := t.tx.ExecContext(ctx, query, qty, storeID, item.ID)
	if err != nil {
		return mapInventoryError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	// Record was removed since the order was placed; recreate it.
	insert := fmt.Sprintf(
		`INSERT INTO inventory (store_id, %s, quantity, reorder_level, updated_at)
		 VALUES ($1, $2, $3, 0, NOW())`, column)
	_, err = t.tx.ExecContext(ctx, insert, storeID, item.ID, qty)
	return err
}

// InsertOrder persists a new order and fills in its ID.
func (t *sqlTx) InsertOrder(ctx context.Context, order *models.Order) error {
	var storeID sql.NullInt64
	if order.StoreID != nil {
		storeID = sql.NullInt64{Int64: *order.StoreID, Valid: true}
	}
	var key sql.NullString
	if order.IdempotencyKey != "" {
		key = sql.NullString{String: order.IdempotencyKey, Valid: true}
	}

	return t.tx.GetContext(ctx, &order.ID,
		`INSERT INTO orders (customer_id, store_id, status, subtotal, tax, discount, total,
		                     payment_method, idempotency_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING id`,
		order.CustomerID, storeID, order.Status, order.Subtotal, order.Tax,
		order.Discount, order.Total, order.PaymentMethod, key, order.CreatedAt)
}

// InsertOrderItems persists the order lines.
func (t *sqlTx) InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error {
	for i := range items {
		var gameID, productID sql.NullInt64
		if items[i].Item.IsGame() {
			gameID = sql.NullInt64{Int64: items[i].Item.ID, Valid: true}
		} else {
			productID = sql.NullInt64{Int64: items[i].Item.ID, Valid: true}
		}
		err := t.tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO order_items (order_id, game_id, product_id, quantity, unit_price, discount, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			orderID, gameID, productID, items[i].Quantity, items[i].UnitPrice,
			items[i].Discount, items[i].LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrderStatus updates order status.
func (t *sqlTx) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// AddLoyaltyPoints applies a signed delta, rejecting any write that
// would take the balance negative.
func (t *sqlTx) AddLoyaltyPoints(ctx context.Context, customerID int64, delta int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE customers SET loyalty_points = loyalty_points + $1
		 WHERE id = $2 AND loyalty_points + $1 >= 0`,
		delta, customerID)
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

	var balance int64
	err = t.tx.GetContext(ctx, &balance,
		"SELECT loyalty_points FROM customers WHERE id = $1 FOR UPDATE", customerID)
	if err == sql.ErrNoRows {
		return models.ErrCustomerNotFound
	}
	if err != nil {
		return err
	}
	return &models.InsufficientPointsError{
		CustomerID: customerID,
		Balance:    balance,
		Requested:  -delta,
	}
}

// AddTotalSpent accumulates delivered order totals on the customer.
func (t *sqlTx) AddTotalSpent(ctx context.Context, customerID int64, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE customers SET total_spent = total_spent + $1 WHERE id = $2",
		amount, customerID)
	return err
}

// InsertLoyaltyTransaction appends a journal row; the journal is never
// updated or deleted.
func (t *sqlTx) InsertLoyaltyTransaction(ctx context.Context, lt *models.LoyaltyTransaction) error {
	var orderID sql.NullInt64
	if lt.OrderID != nil {
		orderID = sql.NullInt64{Int64: *lt.OrderID, Valid: true}
	}
	return t.tx.GetContext(ctx, &lt.ID,
		`INSERT INTO loyalty_transactions (customer_id, order_id, points_earned, points_redeemed, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		lt.CustomerID, orderID, lt.PointsEarned, lt.PointsRedeemed, lt.CreatedAt)
}

// InsertPreOrder persists a new pre-order and fills in its ID.
func (t *sqlTx) InsertPreOrder(ctx context.Context, po *models.PreOrder) error {
	var storeID sql.NullInt64
	if po.StoreID != nil {
		storeID = sql.NullInt64{Int64: *po.StoreID, Valid: true}
	}
	return t.tx.GetContext(ctx, &po.ID,
		`INSERT INTO pre_orders (customer_id, game_id, store_id, quantity, deposit_amount,
		                         total_price, expected_release_date, is_fulfilled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		 RETURNING id`,
		po.CustomerID, po.GameID, storeID, po.Quantity, po.DepositAmount,
		po.TotalPrice, po.ExpectedReleaseDate, po.CreatedAt)
}

// MarkPreOrderFulfilled flips the fulfilled flag.
func (t *sqlTx) MarkPreOrderFulfilled(ctx context.Context, preOrderID int64) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE pre_orders SET is_fulfilled = TRUE WHERE id = $1", preOrderID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrPreOrderNotFound
	}
	return nil
}

// InsertReturn persists a new return and fills in its ID.
func (t *sqlTx) InsertReturn(ctx context.Context, ret *models.Return) error {
	return t.tx.GetContext(ctx, &ret.ID,
		`INSERT INTO returns (order_id, customer_id, return_date, refund_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		ret.OrderID, ret.CustomerID, ret.ReturnDate, ret.RefundAmount, ret.Status, ret.CreatedAt)
}

// UpdateReturnStatus updates return status.
func (t *sqlTx) UpdateReturnStatus(ctx context.Context, returnID int64, status models.ReturnStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE returns SET status = $1 WHERE id = $2", status, returnID)
	return err
}

// mapInventoryError surfaces a CHECK violation as the typed negative
// inventory invariant breach.
func mapInventoryError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgCheckViolation {
		return fmt.Errorf("%w: %v", models.ErrNegativeInventory, err)
	}
	return err
}

var _ ports.Store = (*Store)(nil)
