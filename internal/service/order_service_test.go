package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamestore-engine/internal/memstore"
	"gamestore-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
}

func storeRef(id int64) *int64 {
	return &id
}

// newTestStore seeds a store with an adult verified customer (1), a
// minor (2), an M-rated game (10), a controller (20), and stock at
// store 1.
func newTestStore() *memstore.Store {
	ms := memstore.NewStore()
	ms.AddCustomer(models.Customer{
		ID:          1,
		Name:        "Dana",
		DateOfBirth: birthDate(1990, 1, 1),
		AgeVerified: true,
	})
	ms.AddCustomer(models.Customer{
		ID:          2,
		Name:        "Sam",
		DateOfBirth: birthDate(2013, 1, 1),
	})
	ms.AddGame(models.Game{
		ID:          10,
		Title:       "Neon Vice",
		Rating:      models.RatingM,
		Price:       dec("59.99"),
		ReleaseDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	ms.AddProduct(models.Product{
		ID:    20,
		SKU:   "CTRL-01",
		Name:  "Wireless Controller",
		Price: dec("129.99"),
	})
	ms.SetStock(1, models.GameRef(10), 5)
	ms.SetStock(1, models.ProductRef(20), 5)
	return ms
}

func newOrderFixture() (*memstore.Store, *OrderService) {
	ms := newTestStore()
	loyalty := NewLoyaltyService(ms, nil, 10, 100)
	loyalty.now = fixedNow
	svc := NewOrderService(ms, nil, nil, loyalty, dec("0.09"))
	svc.now = fixedNow
	return ms, svc
}

func TestPlaceOrderComputesTotals(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, dec("59.99").Equal(order.Subtotal), "subtotal %s", order.Subtotal)
	assert.True(t, dec("5.40").Equal(order.Tax), "tax %s", order.Tax)
	assert.True(t, dec("65.39").Equal(order.Total), "total %s", order.Total)

	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Quantity)

	items, err := ms.GetOrderItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.GameRef(10), items[0].Item)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 6}},
	})
	var stock *models.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 5, stock.Available)
	assert.Equal(t, 6, stock.Requested)

	// Nothing was persisted.
	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
}

func TestPlaceOrderAllOrNothing(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	// Second line exceeds stock; the first line's decrement must roll
	// back with it.
	_, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items: []ItemRequest{
			{Item: models.GameRef(10), Quantity: 2},
			{Item: models.ProductRef(20), Quantity: 9},
		},
	})
	require.Error(t, err)

	game, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 5, game.Quantity)
	product, err := ms.GetInventory(ctx, 1, models.ProductRef(20))
	require.NoError(t, err)
	assert.Equal(t, 5, product.Quantity)
}

func TestPlaceOrderAgeGateBlocksWholeOrder(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	// Minor buying a controller plus an M-rated game: the gate denies
	// the game line and the whole order with it.
	_, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    2,
		StoreID:       storeRef(1),
		PaymentMethod: "cash",
		Items: []ItemRequest{
			{Item: models.ProductRef(20), Quantity: 1},
			{Item: models.GameRef(10), Quantity: 1},
		},
	})
	var underAge *models.UnderAgeError
	require.ErrorAs(t, err, &underAge)

	rec, err := ms.GetInventory(ctx, 1, models.ProductRef(20))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
}

func TestPlaceOrderOnlineSkipsInventory(t *testing.T) {
	_, svc := newOrderFixture()
	ctx := context.Background()

	// No store: no inventory record exists for store 99 and none is
	// needed.
	order, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Nil(t, order.StoreID)
	assert.False(t, order.InStore())
}

func TestPlaceOrderRejectsBadQuantities(t *testing.T) {
	_, svc := newOrderFixture()
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, models.ErrNoItems)

	_, err = svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 0}},
	})
	assert.ErrorIs(t, err, models.ErrItemQuantityInvalid)
}

func TestPlaceOrderIdempotency(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	req := &PlaceOrderRequest{
		CustomerID:     1,
		StoreID:        storeRef(1),
		PaymentMethod:  "card",
		Items:          []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
		IdempotencyKey: "key-42",
	}
	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	second, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// The retry decremented nothing.
	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Quantity)
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	ms, svc := newOrderFixture()
	ms.SetStock(1, models.GameRef(10), 1)
	ctx := context.Background()

	const callers = 8
	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
				CustomerID:    1,
				StoreID:       storeRef(1),
				PaymentMethod: "card",
				Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
			})
			if err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)
}

func TestMarkDeliveredAccruesExactlyOnce(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.ProductRef(20), Quantity: 1}},
	})
	require.NoError(t, err)
	// 129.99 + 11.70 tax = 141.69, which floors to 14 points.
	require.True(t, dec("141.69").Equal(order.Total), "total %s", order.Total)

	require.NoError(t, svc.MarkProcessing(ctx, order.ID))
	require.NoError(t, svc.MarkShipped(ctx, order.ID))
	require.NoError(t, svc.MarkDelivered(ctx, order.ID))

	customer, err := ms.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(14), customer.LoyaltyPoints)
	assert.True(t, order.Total.Equal(customer.TotalSpent))

	// Redelivery is a no-op: no double accrual, no extra journal rows.
	require.NoError(t, svc.MarkDelivered(ctx, order.ID))
	customer, err = ms.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(14), customer.LoyaltyPoints)

	journal, err := ms.ListLoyaltyTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, int64(14), journal[0].PointsEarned)
}

func TestOrderLifecycleIsOneDirectional(t *testing.T) {
	_, svc := newOrderFixture()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkShipped(ctx, order.ID))

	// Backwards and sideways moves are rejected.
	var transition *models.TransitionError
	assert.ErrorAs(t, svc.MarkProcessing(ctx, order.ID), &transition)
	assert.ErrorAs(t, svc.CancelOrder(ctx, order.ID, "changed mind"), &transition)
	assert.ErrorAs(t, svc.RefundOrder(ctx, order.ID), &transition)

	require.NoError(t, svc.MarkDelivered(ctx, order.ID))
	assert.ErrorAs(t, svc.CancelOrder(ctx, order.ID, ""), &transition)
	assert.NoError(t, svc.RefundOrder(ctx, order.ID))
}

func TestCancelPendingOrder(t *testing.T) {
	ms, svc := newOrderFixture()
	ctx := context.Background()

	order, err := svc.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelOrder(ctx, order.ID, "out of budget"))

	got, err := ms.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
}

func TestLineTotalFloorsAtZero(t *testing.T) {
	total := lineTotal(dec("10.00"), 1, dec("15.00"))
	assert.True(t, total.IsZero())
}
