package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliver(t *testing.T, repo *GormOrderRepository, o *order.Order) {
	t.Helper()
	ctx := context.Background()
	admin := shared.NewActor(uuid.New(), shared.RoleAdmin)
	now := time.Now()
	steps := []struct {
		action  order.Action
		payload order.Payload
	}{
		{order.ActionConfirm, order.Payload{}},
		{order.ActionProcess, order.Payload{}},
		{order.ActionShip, order.Payload{TrackingNumber: "TRK-1", Carrier: "courier"}},
		{order.ActionDeliver, order.Payload{}},
	}
	for _, s := range steps {
		require.NoError(t, o.Apply(s.action, admin, s.payload, now))
		require.NoError(t, repo.SaveWithLock(ctx, o))
	}
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, o))

	t.Run("find by id loads items and snapshot", func(t *testing.T) {
		got, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.OrderNumber, got.OrderNumber)
		assert.Equal(t, order.StatusPending, got.Status)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, got.Subtotal.Equal(decimal.NewFromInt(300)), got.Subtotal.String())
		assert.True(t, got.MarketerProfit.Equal(decimal.NewFromInt(100)))
		assert.True(t, got.Total.Equal(decimal.NewFromInt(330)))
		assert.Equal(t, "Jane Doe", got.Recipient.Name)
		assert.Empty(t, got.GetDomainEvents())
	})

	t.Run("find by order number", func(t *testing.T) {
		got, err := repo.FindByOrderNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	})

	t.Run("missing order is NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate order number is ALREADY_EXISTS", func(t *testing.T) {
		dup := newTestOrder(t, uuid.New())
		dup.OrderNumber = o.OrderNumber
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("find by ids skips unknown", func(t *testing.T) {
		got, err := repo.FindByIDs(ctx, []uuid.UUID{o.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	admin := shared.NewActor(uuid.New(), shared.RoleAdmin)

	o := newTestOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, o))

	stale, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, o.Apply(order.ActionConfirm, admin, order.Payload{}, time.Now()))
	require.NoError(t, repo.SaveWithLock(ctx, o))
	assert.Equal(t, 2, o.Version)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedBy)
	assert.Equal(t, admin.ID, *got.ConfirmedBy)

	t.Run("stale version is CONCURRENT_MODIFICATION", func(t *testing.T) {
		require.NoError(t, stale.Apply(order.ActionCancel, admin, order.Payload{}, time.Now()))
		err := repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)

		again, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusConfirmed, again.Status)
	})
}

func TestGormOrderRepository_MarkProfitsDistributed(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	pending := newTestOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, pending))

	delivered := newTestOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, delivered))
	deliver(t, repo, delivered)

	t.Run("not delivered is INVALID_TRANSITION", func(t *testing.T) {
		err := repo.MarkProfitsDistributed(ctx, pending.ID, time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)

		got, err := repo.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.False(t, got.ProfitsDistributed)
	})

	t.Run("unknown order is NOT_FOUND", func(t *testing.T) {
		err := repo.MarkProfitsDistributed(ctx, uuid.New(), time.Now())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("undistributed lists only the delivered order", func(t *testing.T) {
		got, err := repo.FindUndistributed(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, delivered.ID, got[0].ID)
	})

	t.Run("second flip fails", func(t *testing.T) {
		require.NoError(t, repo.MarkProfitsDistributed(ctx, delivered.ID, time.Now()))
		assert.ErrorIs(t, repo.MarkProfitsDistributed(ctx, delivered.ID, time.Now()), shared.ErrAlreadyDistributed)

		got, err := repo.FindByID(ctx, delivered.ID)
		require.NoError(t, err)
		assert.True(t, got.ProfitsDistributed)
		assert.NotNil(t, got.ProfitsDistributedAt)

		left, err := repo.FindUndistributed(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, left)
	})
}

func TestGormOrderRepository_FindAll(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	seller := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTestOrder(t, seller)))
	}
	require.NoError(t, repo.Create(ctx, newTestOrder(t, uuid.New())))

	filter := shared.DefaultFilter()
	filter.PageSize = 2
	filter.Filters = map[string]any{"owner_id": seller}

	got, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, seller, o.SellerID)
	}
}

func TestGormOrderRepository_AttachShipment(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, o))

	shipmentID := uuid.New()
	require.NoError(t, repo.AttachShipment(ctx, o.ID, shipmentID))

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ShipmentID)
	assert.Equal(t, shipmentID, *got.ShipmentID)
	assert.Equal(t, 1, got.Version)

	assert.ErrorIs(t, repo.AttachShipment(ctx, uuid.New(), shipmentID), shared.ErrNotFound)
}
