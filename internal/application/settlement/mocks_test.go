package settlement

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLedgerRepository is a mock implementation of ledger.Repository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockLedgerRepository) FindTransaction(ctx context.Context, txID uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) FindTransactions(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, int64, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).([]ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) Record(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, bool, error) {
	args := m.Called(ctx, tx)
	if rf, ok := args.Get(0).(func(context.Context, *ledger.Transaction) *ledger.Transaction); ok {
		return rf(ctx, tx), args.Bool(1), args.Error(2)
	}
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ledger.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockLedgerRepository) Finalize(ctx context.Context, txID, approver uuid.UUID, at time.Time) (*ledger.Transaction, error) {
	args := m.Called(ctx, txID, approver, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) Reject(ctx context.Context, txID, approver uuid.UUID, at time.Time, reason string) (*ledger.Transaction, error) {
	args := m.Called(ctx, txID, approver, at, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindUndistributed(ctx context.Context, limit int) ([]order.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) MarkProfitsDistributed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockOrderRepository) AttachShipment(ctx context.Context, id, shipmentID uuid.UUID) error {
	return m.Called(ctx, id, shipmentID).Error(0)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}
