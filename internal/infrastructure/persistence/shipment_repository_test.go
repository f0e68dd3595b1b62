package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormShipmentRepository(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	s, err := shipment.NewShipment(orderID, "ORD-1", "courier", "default")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, s))

	t.Run("one shipment per order", func(t *testing.T) {
		dup, err := shipment.NewShipment(orderID, "ORD-1", "courier", "default")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("failure is recorded and listed as pending", func(t *testing.T) {
		got, err := repo.FindByOrderID(ctx, orderID)
		require.NoError(t, err)
		got.RecordFailure(shipment.NewTransportError("courier", errors.New("connection reset")), time.Now())
		require.NoError(t, repo.SaveWithLock(ctx, got))

		pending, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 1, pending[0].Attempts)
		assert.Contains(t, pending[0].LastError, "connection reset")
	})

	t.Run("confirmed shipment is never downgraded", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)

		fresh, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		require.NoError(t, fresh.Confirm("EXT-42", time.Now()))
		require.NoError(t, repo.SaveWithLock(ctx, fresh))

		stale.RecordFailure(shipment.NewTransportError("courier", errors.New("late timeout")), time.Now())
		assert.ErrorIs(t, repo.SaveWithLock(ctx, stale), shared.ErrConcurrentModification)

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusConfirmed, got.Status)
		assert.Equal(t, "EXT-42", got.ExternalID)

		pending, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("missing shipment is NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByOrderID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
