package service

import (
	"context"
	"testing"
	"time"

	"gamestore-engine/internal/memstore"
	"gamestore-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReturnFixture places one in-store order (2 games from store 1)
// and returns the services around it.
func newReturnFixture(t *testing.T) (*memstore.Store, *ReturnService, *models.Order) {
	t.Helper()
	ms, orders := newOrderFixture()
	svc := NewReturnService(ms, nil, nil, 30)
	svc.now = fixedNow

	order, err := orders.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID:    1,
		StoreID:       storeRef(1),
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 2}},
	})
	require.NoError(t, err)
	return ms, svc, order
}

func TestRequestReturnWithinWindow(t *testing.T) {
	_, svc, order := newReturnFixture(t)
	ctx := context.Background()

	// Exactly 30 days after the order is still inside the window.
	ret, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusPending, ret.Status)
	assert.True(t, order.Total.Equal(ret.RefundAmount))
}

func TestRequestReturnWindowExpired(t *testing.T) {
	_, svc, order := newReturnFixture(t)
	ctx := context.Background()

	_, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(30*24*time.Hour+time.Second))
	var window *models.ReturnWindowExpiredError
	require.ErrorAs(t, err, &window)
	assert.Equal(t, order.CreatedAt, window.OrderDate)
}

func TestApproveReturnRestoresStockOnce(t *testing.T) {
	ms, svc, order := newReturnFixture(t)
	ctx := context.Background()

	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	require.Equal(t, 3, rec.Quantity)

	ret, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, svc.ApproveReturn(ctx, ret.ID))

	rec, err = ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)

	got, err := ms.GetReturn(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusApproved, got.Status)

	// Approving again must not credit stock a second time.
	require.NoError(t, svc.ApproveReturn(ctx, ret.ID))
	rec, err = ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
}

func TestApproveRejectedReturn(t *testing.T) {
	_, svc, order := newReturnFixture(t)
	ctx := context.Background()

	ret, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, svc.RejectReturn(ctx, ret.ID))

	var transition *models.ReturnTransitionError
	assert.ErrorAs(t, svc.ApproveReturn(ctx, ret.ID), &transition)

	// Rejecting twice is also off the lifecycle.
	assert.ErrorAs(t, svc.RejectReturn(ctx, ret.ID), &transition)
}

func TestCompleteReturnLifecycle(t *testing.T) {
	ms, svc, order := newReturnFixture(t)
	ctx := context.Background()

	ret, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(24*time.Hour))
	require.NoError(t, err)

	// Pending cannot complete.
	var transition *models.ReturnTransitionError
	assert.ErrorAs(t, svc.CompleteReturn(ctx, ret.ID), &transition)

	require.NoError(t, svc.ApproveReturn(ctx, ret.ID))
	require.NoError(t, svc.CompleteReturn(ctx, ret.ID))

	got, err := ms.GetReturn(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReturnStatusCompleted, got.Status)

	// Completing a settled return is a no-op.
	assert.NoError(t, svc.CompleteReturn(ctx, ret.ID))
}

func TestApproveOnlineOrderReturnSkipsInventory(t *testing.T) {
	ms, orders := newOrderFixture()
	svc := NewReturnService(ms, nil, nil, 30)
	svc.now = fixedNow
	ctx := context.Background()

	order, err := orders.PlaceOrder(ctx, &PlaceOrderRequest{
		CustomerID:    1,
		PaymentMethod: "card",
		Items:         []ItemRequest{{Item: models.GameRef(10), Quantity: 1}},
	})
	require.NoError(t, err)

	ret, err := svc.RequestReturn(ctx, order.ID, 1, order.CreatedAt.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, svc.ApproveReturn(ctx, ret.ID))

	// Store 1 stock never moved; the order was online.
	rec, err := ms.GetInventory(ctx, 1, models.GameRef(10))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Quantity)
}

func TestRequestReturnUnknownOrder(t *testing.T) {
	_, svc, _ := newReturnFixture(t)
	ctx := context.Background()

	_, err := svc.RequestReturn(ctx, 999, 1, fixedNow())
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}
