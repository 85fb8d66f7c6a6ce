package memstore

import (
	"context"
	"errors"
	"testing"

	"gamestore-engine/internal/models"
	"gamestore-engine/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ms := NewStore()
	ms.SetStock(1, models.GameRef(7), 4)
	ctx := context.Background()

	boom := errors.New("boom")
	err := ms.WithinTx(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.DecrementStock(ctx, 1, models.GameRef(7), 3))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The decrement died with the transaction.
	rec, err := ms.GetInventory(ctx, 1, models.GameRef(7))
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Quantity)
}

func TestDecrementStockGuardsAvailability(t *testing.T) {
	ms := NewStore()
	ms.SetStock(1, models.GameRef(7), 2)
	ctx := context.Background()

	err := ms.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.DecrementStock(ctx, 1, models.GameRef(7), 3)
	})
	var stock *models.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 2, stock.Available)

	// Unknown records count as zero stock.
	err = ms.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.DecrementStock(ctx, 9, models.ProductRef(1), 1)
	})
	require.ErrorAs(t, err, &stock)
	assert.Zero(t, stock.Available)
}

func TestRestockCreatesAndTopsUp(t *testing.T) {
	ms := NewStore()
	ctx := context.Background()

	require.NoError(t, ms.Restock(ctx, 1, models.ProductRef(3), 10, 2))
	require.NoError(t, ms.Restock(ctx, 1, models.ProductRef(3), 5, 2))

	rec, err := ms.GetInventory(ctx, 1, models.ProductRef(3))
	require.NoError(t, err)
	assert.Equal(t, 15, rec.Quantity)
	assert.Equal(t, 2, rec.ReorderLevel)
}

func TestAddLoyaltyPointsNeverGoesNegative(t *testing.T) {
	ms := NewStore()
	ms.AddCustomer(models.Customer{ID: 1, Name: "Alex", LoyaltyPoints: 50})
	ctx := context.Background()

	err := ms.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.AddLoyaltyPoints(ctx, 1, -60)
	})
	var points *models.InsufficientPointsError
	require.ErrorAs(t, err, &points)

	customer, err := ms.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), customer.LoyaltyPoints)
}
