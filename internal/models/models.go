package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates the two sellable item families.
type ItemKind string

const (
	ItemKindGame    ItemKind = "game"
	ItemKindProduct ItemKind = "product"
)

// ItemRef identifies exactly one sellable item: a game or a product,
// never both and never neither.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// GameRef builds an ItemRef pointing at a game.
func GameRef(id int64) ItemRef {
	return ItemRef{Kind: ItemKindGame, ID: id}
}

// ProductRef builds an ItemRef pointing at a product.
func ProductRef(id int64) ItemRef {
	return ItemRef{Kind: ItemKindProduct, ID: id}
}

// IsGame reports whether the reference points at a game.
func (r ItemRef) IsGame() bool {
	return r.Kind == ItemKindGame
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Rating is an ESRB content rating.
type Rating string

const (
	RatingE   Rating = "E"
	RatingE10 Rating = "E10+"
	RatingT   Rating = "T"
	RatingM   Rating = "M"
	RatingAO  Rating = "AO"
)

// Game is catalog reference data, read-only to the engine.
type Game struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Rating      Rating          `db:"rating" json:"rating"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ReleaseDate time.Time       `db:"release_date" json:"release_date"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Product is non-game merchandise (consoles, accessories), read-only
// to the engine.
type Product struct {
	ID        int64           `db:"id" json:"id"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Customer holds the engine-owned customer state. LoyaltyPoints is
// mutated only through the loyalty service; AgeVerified is set
// out-of-band and read-only here.
type Customer struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	DateOfBirth   *time.Time      `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AgeVerified   bool            `db:"age_verified" json:"age_verified"`
	LoyaltyPoints int64           `db:"loyalty_points" json:"loyalty_points"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"total_spent"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// InventoryRecord is per-store stock for one item, keyed by
// (store, item). Quantity never goes negative.
type InventoryRecord struct {
	StoreID      int64     `json:"store_id"`
	Item         ItemRef   `json:"item"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// statusRank orders the forward path of the lifecycle. Transitions may
// only move to a higher rank; cancelled and refunded are side branches.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// CanTransition reports whether an order may move from one status to
// another. The forward path is one-directional; cancellation is allowed
// from pending and processing only; refund only from delivered.
func CanTransition(from, to OrderStatus) bool {
	switch to {
	case OrderStatusCancelled:
		return from == OrderStatusPending || from == OrderStatusProcessing
	case OrderStatusRefunded:
		return from == OrderStatusDelivered
	}

	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Order is owned exclusively by the order service. StoreID nil means an
// online order; inventory is not touched for those.
type Order struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customer_id"`
	StoreID        *int64          `json:"store_id,omitempty"`
	Status         OrderStatus     `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// InStore reports whether the order is fulfilled from a store's stock.
func (o *Order) InStore() bool {
	return o.StoreID != nil
}

// OrderItem is one order line. Immutable once the order is committed.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Item      ItemRef         `json:"item"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// LoyaltyTransaction is an append-only journal row. Exactly one of
// PointsEarned/PointsRedeemed is non-zero. Never updated or deleted.
type LoyaltyTransaction struct {
	ID             int64     `db:"id" json:"id"`
	CustomerID     int64     `db:"customer_id" json:"customer_id"`
	OrderID        *int64    `db:"order_id" json:"order_id,omitempty"`
	PointsEarned   int64     `db:"points_earned" json:"points_earned"`
	PointsRedeemed int64     `db:"points_redeemed" json:"points_redeemed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PreOrder reserves a future release against a partial deposit.
// ExpectedReleaseDate always comes from the game record.
type PreOrder struct {
	ID                  int64           `db:"id" json:"id"`
	CustomerID          int64           `db:"customer_id" json:"customer_id"`
	GameID              int64           `db:"game_id" json:"game_id"`
	StoreID             *int64          `db:"store_id" json:"store_id,omitempty"`
	Quantity            int             `db:"quantity" json:"quantity"`
	DepositAmount       decimal.Decimal `db:"deposit_amount" json:"deposit_amount"`
	TotalPrice          decimal.Decimal `db:"total_price" json:"total_price"`
	ExpectedReleaseDate time.Time       `db:"expected_release_date" json:"expected_release_date"`
	IsFulfilled         bool            `db:"is_fulfilled" json:"is_fulfilled"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// ReturnStatus is the return lifecycle state.
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCompleted ReturnStatus = "completed"
)

// Return is a return request against an order.
type Return struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	ReturnDate   time.Time       `db:"return_date" json:"return_date"`
	RefundAmount decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	Status       ReturnStatus    `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
