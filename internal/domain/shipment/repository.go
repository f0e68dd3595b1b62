package shipment

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists shipments
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Shipment, error)
	FindPending(ctx context.Context, limit int) ([]Shipment, error)

	// Create inserts a shipment; a second shipment for the same order fails with ALREADY_EXISTS
	Create(ctx context.Context, s *Shipment) error

	// SaveWithLock persists attempt results with a version check. A write
	// that would move a confirmed row back to pending matches no row.
	SaveWithLock(ctx context.Context, s *Shipment) error
}
