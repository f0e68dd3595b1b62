package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var platformAccount = uuid.MustParse("00000000-0000-0000-0000-00000000a001")

func settlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		PlatformAccountID:   platformAccount,
		CommissionRate:      decimal.NewFromInt(10),
		EligibleSellerRoles: []string{string(shared.RoleMarketer)},
		BatchSize:           500,
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// flakyLedger fails Record for one idempotency key a fixed number of times
type flakyLedger struct {
	ledger.Repository
	mu       sync.Mutex
	failKey  string
	failures int
}

func (f *flakyLedger) Record(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, bool, error) {
	f.mu.Lock()
	if tx.IdempotencyKey == f.failKey && f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, false, errors.New("connection reset by peer")
	}
	f.mu.Unlock()
	return f.Repository.Record(ctx, tx)
}

// returningLedger returns the order through the order repository right
// after the platform commission is recorded
type returningLedger struct {
	ledger.Repository
	orders *persistence.GormOrderRepository
}

func (r *returningLedger) Record(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, bool, error) {
	recorded, created, err := r.Repository.Record(ctx, tx)
	if err != nil || tx.SourceType != ledger.SourceTypeOrderCommission {
		return recorded, created, err
	}
	id, parseErr := uuid.Parse(tx.SourceID)
	if parseErr != nil {
		return nil, false, parseErr
	}
	o, findErr := r.orders.FindByID(ctx, id)
	if findErr != nil {
		return nil, false, findErr
	}
	if applyErr := o.Apply(order.ActionReturn, shared.NewActor(uuid.New(), shared.RoleAdmin), order.Payload{}, fixedNow); applyErr != nil {
		return nil, false, applyErr
	}
	if saveErr := r.orders.SaveWithLock(ctx, o); saveErr != nil {
		return nil, false, saveErr
	}
	return recorded, created, err
}

type settlementFixture struct {
	orders  *persistence.GormOrderRepository
	ledger  ledger.Repository
	service *ProfitDistributionService
}

func newFixture(t *testing.T, wrap func(ledger.Repository) ledger.Repository) *settlementFixture {
	t.Helper()
	db := setupDB(t)
	orders := persistence.NewGormOrderRepository(db)
	var ledgerRepo ledger.Repository = persistence.NewGormLedgerRepository(db)
	if wrap != nil {
		ledgerRepo = wrap(ledgerRepo)
	}
	svc := NewProfitDistributionService(orders, newLedgerService(ledgerRepo, nil), nil, settlementConfig(), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return &settlementFixture{orders: orders, ledger: ledgerRepo, service: svc}
}

// deliveredOrder stores an order for seller and walks it to delivered.
// Unit 150, base 100, qty 2: marketer profit 100, commission 30.
func (f *settlementFixture) deliveredOrder(t *testing.T, seller uuid.UUID, role shared.Role, n int) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber: fmt.Sprintf("ORD-20260301-%06d", n),
		SellerID:    seller,
		SellerRole:  role,
		Recipient:   order.Recipient{Name: "Jane Doe", Phone: "555-0100", Address: "1 Main St"},
		Items: []order.NewItemInput{{
			ProductID: uuid.New(), ProductName: "Widget", Quantity: 2,
			UnitPrice: decimal.NewFromInt(150), BasePrice: decimal.NewFromInt(100),
		}},
		CommissionRate: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Create(ctx, o))

	admin := shared.NewActor(uuid.New(), shared.RoleAdmin)
	for _, a := range []order.Action{order.ActionConfirm, order.ActionProcess, order.ActionShip, order.ActionDeliver} {
		require.NoError(t, o.Apply(a, admin, order.Payload{TrackingNumber: "TRK-1", Carrier: "flash"}, fixedNow))
		require.NoError(t, f.orders.SaveWithLock(ctx, o))
	}
	o.ClearDomainEvents()
	return o
}

func (f *settlementFixture) balance(t *testing.T, account uuid.UUID) decimal.Decimal {
	t.Helper()
	acc, err := f.ledger.FindAccount(context.Background(), account)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return acc.Balance
}

func TestProfitDistributionService_Distribute(t *testing.T) {
	ctx := context.Background()

	t.Run("credits seller and platform once", func(t *testing.T) {
		f := newFixture(t, nil)
		seller := uuid.New()
		o := f.deliveredOrder(t, seller, shared.RoleMarketer, 1)

		require.NoError(t, f.service.Distribute(ctx, o.ID))
		assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(100)))
		assert.True(t, f.balance(t, platformAccount).Equal(decimal.NewFromInt(30)))

		stored, err := f.orders.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, stored.ProfitsDistributed)

		err = f.service.Distribute(ctx, o.ID)
		assert.ErrorIs(t, err, shared.ErrAlreadyDistributed)
		assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(100)))
		assert.True(t, f.balance(t, platformAccount).Equal(decimal.NewFromInt(30)))
	})

	t.Run("ineligible seller role receives nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		seller := uuid.New()
		o := f.deliveredOrder(t, seller, shared.RoleFulfiller, 2)

		require.NoError(t, f.service.Distribute(ctx, o.ID))
		assert.True(t, f.balance(t, seller).IsZero())
		assert.True(t, f.balance(t, platformAccount).Equal(decimal.NewFromInt(30)))
	})

	t.Run("undelivered order is rejected", func(t *testing.T) {
		repo := new(MockOrderRepository)
		o, err := order.NewOrder(order.NewOrderInput{
			OrderNumber: "ORD-20260301-PENDIN", SellerID: uuid.New(), SellerRole: shared.RoleMarketer,
			Recipient: order.Recipient{Name: "A", Phone: "1", Address: "x"},
			Items:     []order.NewItemInput{{ProductName: "W", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		})
		require.NoError(t, err)
		repo.On("FindByID", ctx, o.ID).Return(o, nil)
		ledgerRepo := new(MockLedgerRepository)

		svc := NewProfitDistributionService(repo, newLedgerService(ledgerRepo, nil), nil, settlementConfig(), zap.NewNop())
		err = svc.Distribute(ctx, o.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		ledgerRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("order returned mid-distribution is reported as a failure", func(t *testing.T) {
		var returning *returningLedger
		f := newFixture(t, func(r ledger.Repository) ledger.Repository {
			returning = &returningLedger{Repository: r}
			return returning
		})
		returning.orders = f.orders
		seller := uuid.New()
		o := f.deliveredOrder(t, seller, shared.RoleMarketer, 4)

		err := f.service.Distribute(ctx, o.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.False(t, errors.Is(err, shared.ErrAlreadyDistributed))

		stored, err := f.orders.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusReturned, stored.Status)
		assert.False(t, stored.ProfitsDistributed)

		h := NewOrderDeliveredHandler(f.service, zap.NewNop())
		assert.Error(t, h.Handle(ctx, order.NewOrderDeliveredEvent(o, shared.SystemActor())))

		result, err := f.service.DistributeBatch(ctx, DistributeRequest{OrderIDs: []uuid.UUID{o.ID}})
		require.NoError(t, err)
		assert.Empty(t, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, o.ID, result.Failed[0].OrderID)
	})

	t.Run("publishes the distribution event", func(t *testing.T) {
		f := newFixture(t, nil)
		o := f.deliveredOrder(t, uuid.New(), shared.RoleMarketer, 3)
		pub := new(MockEventPublisher)
		pub.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == order.EventTypeOrderProfitsDistributed
		})).Return(nil)
		f.service.publisher = pub

		require.NoError(t, f.service.Distribute(ctx, o.ID))
		pub.AssertExpectations(t)
	})
}

func TestProfitDistributionService_DistributeBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a selection", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.service.DistributeBatch(ctx, DistributeRequest{})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("one failure does not stop the batch and a rerun settles only the remainder", func(t *testing.T) {
		var flaky *flakyLedger
		f := newFixture(t, func(r ledger.Repository) ledger.Repository {
			flaky = &flakyLedger{Repository: r, failures: 1}
			return flaky
		})

		seller := uuid.New()
		ids := make([]uuid.UUID, 5)
		for i := range ids {
			ids[i] = f.deliveredOrder(t, seller, shared.RoleMarketer, 10+i).ID
		}
		flaky.failKey = ledger.OrderProfitKey(ids[2])

		result, err := f.service.DistributeBatch(ctx, DistributeRequest{OrderIDs: ids})
		require.NoError(t, err)
		assert.Len(t, result.Succeeded, 4)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, ids[2], result.Failed[0].OrderID)
		assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(400)))

		result, err = f.service.DistributeBatch(ctx, DistributeRequest{OrderIDs: ids})
		require.NoError(t, err)
		assert.Len(t, result.Succeeded, 5)
		assert.Empty(t, result.Failed)
		assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(500)))
		assert.True(t, f.balance(t, platformAccount).Equal(decimal.NewFromInt(150)))

		txs, total, err := f.ledger.FindTransactions(ctx, seller, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.True(t, ledger.ReplayBalance(txs).Equal(decimal.NewFromInt(500)))
	})

	t.Run("distribute all picks up undistributed orders only", func(t *testing.T) {
		f := newFixture(t, nil)
		seller := uuid.New()
		first := f.deliveredOrder(t, seller, shared.RoleMarketer, 20)
		require.NoError(t, f.service.Distribute(ctx, first.ID))
		f.deliveredOrder(t, seller, shared.RoleMarketer, 21)
		f.deliveredOrder(t, seller, shared.RoleMarketer, 22)

		result, err := f.service.DistributeBatch(ctx, DistributeRequest{DistributeAll: true})
		require.NoError(t, err)
		assert.Len(t, result.Succeeded, 2)
		assert.Empty(t, result.Failed)
		assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(300)))

		remaining, err := f.orders.FindUndistributed(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("unknown ids are reported as failed", func(t *testing.T) {
		f := newFixture(t, nil)
		known := f.deliveredOrder(t, uuid.New(), shared.RoleMarketer, 30)
		unknown := uuid.New()

		result, err := f.service.DistributeBatch(ctx, DistributeRequest{OrderIDs: []uuid.UUID{known.ID, unknown}})
		require.NoError(t, err)
		assert.Len(t, result.Succeeded, 1)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, unknown, result.Failed[0].OrderID)
	})
}

func TestOrderDeliveredHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seller := uuid.New()
	o := f.deliveredOrder(t, seller, shared.RoleMarketer, 40)
	h := NewOrderDeliveredHandler(f.service, zap.NewNop())

	assert.Equal(t, []string{order.EventTypeOrderDelivered}, h.EventTypes())

	evt := order.NewOrderDeliveredEvent(o, shared.SystemActor())
	require.NoError(t, h.Handle(ctx, evt))
	require.NoError(t, h.Handle(ctx, evt), "redelivery is absorbed")
	assert.True(t, f.balance(t, seller).Equal(decimal.NewFromInt(100)))

	err := h.Handle(ctx, order.NewOrderPlacedEvent(o))
	assert.Error(t, err)
}
