package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderNotFound is returned when an order lookup misses.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCustomerNotFound is returned when a customer lookup misses.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrGameNotFound is returned when a game lookup misses.
	ErrGameNotFound = errors.New("game not found")
	// ErrProductNotFound is returned when a product lookup misses.
	ErrProductNotFound = errors.New("product not found")
	// ErrReturnNotFound is returned when a return lookup misses.
	ErrReturnNotFound = errors.New("return not found")
	// ErrPreOrderNotFound is returned when a pre-order lookup misses.
	ErrPreOrderNotFound = errors.New("pre-order not found")
	// ErrInventoryNotFound is returned when no inventory record exists
	// for a (store, item) pair.
	ErrInventoryNotFound = errors.New("inventory record not found")

	// ErrNegativeInventory means a write would have taken a stock count
	// below zero. Decrement's guard makes this unreachable; if the
	// storage layer still reports it, it is logged and surfaced, never
	// clamped.
	ErrNegativeInventory = errors.New("inventory quantity would become negative")

	// ErrMissingBirthDate denies an age-restricted purchase when the
	// customer has no recorded birth date.
	ErrMissingBirthDate = errors.New("customer has no recorded birth date")
	// ErrUnverifiedIdentity denies an age-restricted purchase when the
	// customer's age qualifies but identity was never verified.
	ErrUnverifiedIdentity = errors.New("customer identity is not age-verified")

	// ErrNoItems rejects an order with no lines.
	ErrNoItems = errors.New("order must contain at least one item")
	// ErrItemQuantityInvalid rejects a non-positive line quantity.
	ErrItemQuantityInvalid = errors.New("order item quantity must be greater than zero")
)

// InsufficientStockError reports a failed availability check or a lost
// check-and-decrement race, with the quantities involved.
type InsufficientStockError struct {
	StoreID   int64
	Item      ItemRef
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s at store %d: available=%d, requested=%d",
		e.Item, e.StoreID, e.Available, e.Requested)
}

// UnderAgeError reports an age-gate denial with the required and actual
// ages.
type UnderAgeError struct {
	Rating      Rating
	RequiredAge int
	ActualAge   int
}

func (e *UnderAgeError) Error() string {
	return fmt.Sprintf("customer is under age for rating %s: required=%d, actual=%d",
		e.Rating, e.RequiredAge, e.ActualAge)
}

// InsufficientPointsError reports a redemption exceeding the balance.
type InsufficientPointsError struct {
	CustomerID int64
	Balance    int64
	Requested  int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient loyalty points for customer %d: balance=%d, requested=%d",
		e.CustomerID, e.Balance, e.Requested)
}

// ReleaseNotFutureError rejects a pre-order for a game that is already
// released.
type ReleaseNotFutureError struct {
	GameID      int64
	ReleaseDate time.Time
}

func (e *ReleaseNotFutureError) Error() string {
	return fmt.Sprintf("game %d release date %s is not in the future",
		e.GameID, e.ReleaseDate.Format("2006-01-02"))
}

// DepositTooLowError rejects a pre-order deposit below the floor.
type DepositTooLowError struct {
	Required decimal.Decimal
	Actual   decimal.Decimal
}

func (e *DepositTooLowError) Error() string {
	return fmt.Sprintf("pre-order deposit too low: required=%s, actual=%s",
		e.Required, e.Actual)
}

// ReturnWindowExpiredError rejects a return requested past the window.
type ReturnWindowExpiredError struct {
	OrderDate  time.Time
	ReturnDate time.Time
	Window     time.Duration
}

func (e *ReturnWindowExpiredError) Error() string {
	return fmt.Sprintf("return window expired: ordered=%s, requested=%s, window=%s",
		e.OrderDate.Format("2006-01-02"), e.ReturnDate.Format("2006-01-02"), e.Window)
}

// TransitionError rejects a status change that the lifecycle does not
// allow.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid order transition: %s -> %s", e.From, e.To)
}

// ReturnTransitionError rejects a return status change that the
// lifecycle does not allow.
type ReturnTransitionError struct {
	From ReturnStatus
	To   ReturnStatus
}

func (e *ReturnTransitionError) Error() string {
	return fmt.Sprintf("invalid return transition: %s -> %s", e.From, e.To)
}
