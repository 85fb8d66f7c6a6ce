// Package ports declares the interfaces the engine's services run
// against: durable storage with transactional units of work, the Redis
// stock fast path, and the event publisher. The postgres store, the
// in-memory store, the redis client and the kafka publisher are the
// adapters.
package ports

import (
	"context"
	"time"

	"gamestore-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Tx is the unit of work handed to a transactional closure. Every read
// and write through a Tx observes one consistent snapshot and commits
// or rolls back as a whole.
type Tx interface {
	GetOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	GetCustomerForUpdate(ctx context.Context, customerID int64) (*models.Customer, error)
	GetReturnForUpdate(ctx context.Context, returnID int64) (*models.Return, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)

	// DecrementStock re-validates availability and subtracts qty under
	// the row's isolation guarantee. Returns *models.InsufficientStockError
	// when the quantity at commit time is below qty.
	DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error
	// RestoreStock adds qty back; no upper bound.
	RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error

	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error

	// AddLoyaltyPoints applies a signed delta to the customer's balance.
	// The implementation rejects any delta that would take the balance
	// negative.
	AddLoyaltyPoints(ctx context.Context, customerID int64, delta int64) error
	AddTotalSpent(ctx context.Context, customerID int64, amount decimal.Decimal) error
	InsertLoyaltyTransaction(ctx context.Context, lt *models.LoyaltyTransaction) error

	InsertPreOrder(ctx context.Context, po *models.PreOrder) error
	MarkPreOrderFulfilled(ctx context.Context, preOrderID int64) error

	InsertReturn(ctx context.Context, ret *models.Return) error
	UpdateReturnStatus(ctx context.Context, returnID int64, status models.ReturnStatus) error
}

// Store is the durable state the engine runs against. Implemented by
// the postgres store and by the in-memory store used in tests.
type Store interface {
	// WithinTx runs fn inside one atomic unit of work. A non-nil error
	// from fn rolls everything back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetGame(ctx context.Context, id int64) (*models.Game, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetInventory(ctx context.Context, storeID int64, item models.ItemRef) (*models.InventoryRecord, error)
	ListInventoryByStore(ctx context.Context, storeID int64) ([]models.InventoryRecord, error)
	GetReturn(ctx context.Context, id int64) (*models.Return, error)
	GetPreOrder(ctx context.Context, id int64) (*models.PreOrder, error)
	ListDuePreOrders(ctx context.Context, now time.Time) ([]models.PreOrder, error)
	ListLoyaltyTransactions(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error)

	// Restock creates the (store, item) record or tops it up.
	Restock(ctx context.Context, storeID int64, item models.ItemRef, qty, reorderLevel int) error
}

// StockCache is the optional fast-path availability cache kept in
// Redis. The database stays authoritative; cache misses and errors fall
// through to it.
type StockCache interface {
	// CheckStock returns (enough, known). known=false means the cache
	// has no opinion and the caller must ask the store.
	CheckStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) (bool, bool, error)
	DecrementStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error
	RestoreStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error
	InitStock(ctx context.Context, storeID int64, item models.ItemRef, qty int) error
}

// Events publishes domain events after a unit of work commits.
// Publishing failures are logged, never propagated into the operation
// result.
type Events interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error
	PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error
	PublishLoyaltyRedeemed(ctx context.Context, event *models.LoyaltyRedeemedEvent) error
	PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error
	PublishReturnApproved(ctx context.Context, event *models.ReturnApprovedEvent) error
	PublishReturnCompleted(ctx context.Context, event *models.ReturnCompletedEvent) error
	PublishPreOrderCreated(ctx context.Context, event *models.PreOrderCreatedEvent) error
	PublishPreOrderFulfilled(ctx context.Context, event *models.PreOrderFulfilledEvent) error
}
