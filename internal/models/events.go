package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced       = "ORDER_PLACED"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
	EventTypeOrderDelivered    = "ORDER_DELIVERED"
	EventTypeOrderRefunded     = "ORDER_REFUNDED"
	EventTypeLoyaltyRedeemed   = "LOYALTY_REDEEMED"
	EventTypeReturnRequested   = "RETURN_REQUESTED"
	EventTypeReturnApproved    = "RETURN_APPROVED"
	EventTypeReturnCompleted   = "RETURN_COMPLETED"
	EventTypePreOrderCreated   = "PREORDER_CREATED"
	EventTypePreOrderFulfilled = "PREORDER_FULFILLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	Item      ItemRef         `json:"item"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPlacedEvent published when an order is committed
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	StoreID    *int64          `json:"store_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderItemData `json:"items"`
}

// OrderCancelledEvent published when an order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderDeliveredEvent published when an order reaches delivered and
// loyalty points are credited
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID      int64 `json:"order_id"`
	CustomerID   int64 `json:"customer_id"`
	PointsEarned int64 `json:"points_earned"`
}

// OrderRefundedEvent published when a delivered order is refunded
type OrderRefundedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// LoyaltyRedeemedEvent published when points are converted to discount
type LoyaltyRedeemedEvent struct {
	BaseEvent
	CustomerID int64           `json:"customer_id"`
	Points     int64           `json:"points"`
	Discount   decimal.Decimal `json:"discount"`
}

// ReturnRequestedEvent published when a return enters pending
type ReturnRequestedEvent struct {
	BaseEvent
	ReturnID int64 `json:"return_id"`
	OrderID  int64 `json:"order_id"`
}

// ReturnApprovedEvent published after inventory has been restored
type ReturnApprovedEvent struct {
	BaseEvent
	ReturnID int64           `json:"return_id"`
	OrderID  int64           `json:"order_id"`
	Refund   decimal.Decimal `json:"refund"`
}

// ReturnCompletedEvent published when a return is settled
type ReturnCompletedEvent struct {
	BaseEvent
	ReturnID int64 `json:"return_id"`
}

// PreOrderCreatedEvent published when a deposit is accepted
type PreOrderCreatedEvent struct {
	BaseEvent
	PreOrderID int64           `json:"preorder_id"`
	GameID     int64           `json:"game_id"`
	Deposit    decimal.Decimal `json:"deposit"`
}

// PreOrderFulfilledEvent published when a release date arrives
type PreOrderFulfilledEvent struct {
	BaseEvent
	PreOrderID int64 `json:"preorder_id"`
	GameID     int64 `json:"game_id"`
}
