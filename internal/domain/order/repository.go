package order

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists orders
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)

	// FindUndistributed returns delivered orders whose profits have not been
	// distributed. The predicate is evaluated by the store.
	FindUndistributed(ctx context.Context, limit int) ([]Order, error)

	// Create inserts a new order with its items
	Create(ctx context.Context, o *Order) error

	// SaveWithLock persists a transition. It fails with CONCURRENT_MODIFICATION
	// when the stored version differs from the order's version.
	SaveWithLock(ctx context.Context, o *Order) error

	// MarkProfitsDistributed atomically flips the distribution guard.
	// Returns ALREADY_DISTRIBUTED if no delivered, undistributed row matched.
	MarkProfitsDistributed(ctx context.Context, id uuid.UUID, at time.Time) error

	// AttachShipment links a shipment without touching status or version
	AttachShipment(ctx context.Context, id, shipmentID uuid.UUID) error
}
