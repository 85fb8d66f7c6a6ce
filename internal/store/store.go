package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gamestore-engine/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the postgres implementation of the engine's storage port.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// refColumn returns the inventory/order_items column an ItemRef keys on.
func refColumn(item models.ItemRef) string {
	if item.IsGame() {
		return "game_id"
	}
	return "product_id"
}

// GetGame retrieves a game by ID
func (s *Store) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	var game models.Game
	err := s.db.GetContext(ctx, &game,
		"SELECT id, title, rating, price, release_date, created_at FROM games WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT id, sku, name, price, created_at FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetCustomer retrieves a customer by ID
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		`SELECT id, name, date_of_birth, age_verified, loyalty_points, total_spent, created_at
		 FROM customers WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListLoyaltyTransactions retrieves a customer's journal, newest first
func (s *Store) ListLoyaltyTransactions(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	var txs []models.LoyaltyTransaction
	err := s.db.SelectContext(ctx, &txs,
		`SELECT id, customer_id, order_id, points_earned, points_redeemed, created_at
		 FROM loyalty_transactions WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	return txs, err
}

// GetReturn retrieves a return by ID
func (s *Store) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	var ret models.Return
	err := s.db.GetContext(ctx, &ret,
		`SELECT id, order_id, customer_id, return_date, refund_amount, status, created_at
		 FROM returns WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrReturnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetPreOrder retrieves a pre-order by ID
func (s *Store) GetPreOrder(ctx context.Context, id int64) (*models.PreOrder, error) {
	var po models.PreOrder
	err := s.db.GetContext(ctx, &po,
		`SELECT id, customer_id, game_id, store_id, quantity, deposit_amount, total_price,
		        expected_release_date, is_fulfilled, created_at
		 FROM pre_orders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrPreOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// ListDuePreOrders retrieves unfulfilled pre-orders whose release date
// has arrived
func (s *Store) ListDuePreOrders(ctx context.Context, now time.Time) ([]models.PreOrder, error) {
	var pos []models.PreOrder
	err := s.db.SelectContext(ctx, &pos,
		`SELECT id, customer_id, game_id, store_id, quantity, deposit_amount, total_price,
		        expected_release_date, is_fulfilled, created_at
		 FROM pre_orders WHERE is_fulfilled = FALSE AND expected_release_date <= $1
		 ORDER BY expected_release_date, id`, now)
	return pos, err
}
