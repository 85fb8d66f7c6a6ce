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

func newPreOrderFixture() (*memstore.Store, *PreOrderService) {
	ms := newTestStore()
	ms.AddGame(models.Game{
		ID:          11,
		Title:       "Starfall Chronicle",
		Rating:      models.RatingT,
		Price:       dec("69.99"),
		ReleaseDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	})
	svc := NewPreOrderService(ms, nil, dec("0.10"))
	svc.now = fixedNow
	return ms, svc
}

func TestCreatePreOrder(t *testing.T) {
	_, svc := newPreOrderFixture()
	ctx := context.Background()

	po, err := svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     11,
		Quantity:   1,
		Deposit:    dec("10.00"),
		TotalPrice: dec("69.99"),
	})
	require.NoError(t, err)
	assert.False(t, po.IsFulfilled)
	// The game's own release date wins over anything the caller knows.
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), po.ExpectedReleaseDate)
}

func TestCreatePreOrderReleaseNotFuture(t *testing.T) {
	ms, svc := newPreOrderFixture()
	ctx := context.Background()

	// Game 10 was released in 2025.
	_, err := svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     10,
		Quantity:   1,
		Deposit:    dec("10.00"),
		TotalPrice: dec("59.99"),
	})
	var release *models.ReleaseNotFutureError
	require.ErrorAs(t, err, &release)

	// Release date exactly now is not in the future either.
	ms.AddGame(models.Game{
		ID:          12,
		Title:       "Same Day",
		Rating:      models.RatingE,
		Price:       dec("39.99"),
		ReleaseDate: fixedNow(),
	})
	_, err = svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     12,
		Quantity:   1,
		Deposit:    dec("10.00"),
		TotalPrice: dec("39.99"),
	})
	assert.ErrorAs(t, err, &release)
}

func TestCreatePreOrderDepositTooLow(t *testing.T) {
	_, svc := newPreOrderFixture()
	ctx := context.Background()

	// 10% of 69.99 is 6.999; a 5.00 deposit is short.
	_, err := svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     11,
		Quantity:   1,
		Deposit:    dec("5.00"),
		TotalPrice: dec("69.99"),
	})
	var deposit *models.DepositTooLowError
	require.ErrorAs(t, err, &deposit)
	assert.True(t, dec("6.999").Equal(deposit.Required), "required %s", deposit.Required)

	// Exactly the floor is accepted.
	_, err = svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     11,
		Quantity:   1,
		Deposit:    dec("6.999"),
		TotalPrice: dec("69.99"),
	})
	assert.NoError(t, err)
}

func TestFulfillDue(t *testing.T) {
	ms, svc := newPreOrderFixture()
	ctx := context.Background()

	ms.AddGame(models.Game{
		ID:          13,
		Title:       "Winter Release",
		Rating:      models.RatingE,
		Price:       dec("49.99"),
		ReleaseDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	})

	due, err := svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     11,
		Quantity:   1,
		Deposit:    dec("10.00"),
		TotalPrice: dec("69.99"),
	})
	require.NoError(t, err)
	notDue, err := svc.CreatePreOrder(ctx, &CreatePreOrderRequest{
		CustomerID: 1,
		GameID:     13,
		Quantity:   1,
		Deposit:    dec("5.00"),
		TotalPrice: dec("49.99"),
	})
	require.NoError(t, err)

	// Release day for game 11 only.
	fulfilled, err := svc.FulfillDue(ctx, time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, fulfilled)

	got, err := ms.GetPreOrder(ctx, due.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFulfilled)

	got, err = ms.GetPreOrder(ctx, notDue.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFulfilled)

	// A second pass finds nothing left.
	fulfilled, err = svc.FulfillDue(ctx, time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, fulfilled)
}
