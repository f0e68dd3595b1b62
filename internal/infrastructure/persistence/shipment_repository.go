package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShipmentRepository implements shipment.Repository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

var _ shipment.Repository = (*GormShipmentRepository)(nil)

// FindByID finds a shipment by ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderID finds the shipment of an order
func (r *GormShipmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*shipment.Shipment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *GormShipmentRepository) findOne(ctx context.Context, cond string, id uuid.UUID) (*shipment.Shipment, error) {
	var m models.ShipmentModel
	if err := r.db.WithContext(ctx).First(&m, cond, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("shipment", id.String())
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindPending lists unconfirmed shipments, least recently attempted first
func (r *GormShipmentRepository) FindPending(ctx context.Context, limit int) ([]shipment.Shipment, error) {
	if limit <= 0 {
		limit = 100
	}
	var ms []models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", shipment.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]shipment.Shipment, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out, nil
}

// Create inserts a shipment. The unique order_id index turns a second
// shipment for the same order into ALREADY_EXISTS.
func (r *GormShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(models.ShipmentModelFromDomain(s))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeAlreadyExists, "Shipment already exists for order "+s.OrderID.String())
	}
	return nil
}

// SaveWithLock persists attempt results. Writing a pending row additionally
// requires the stored row to still be pending, so a confirmed shipment is never downgraded.
func (r *GormShipmentRepository) SaveWithLock(ctx context.Context, s *shipment.Shipment) error {
	m := models.ShipmentModelFromDomain(s)
	m.Version = s.Version + 1

	query := r.db.WithContext(ctx).
		Model(&models.ShipmentModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version)
	if s.Status == shipment.StatusPending {
		query = query.Where("status = ?", shipment.StatusPending)
	}

	res := query.Updates(map[string]any{
		"carrier_code":    m.CarrierCode,
		"credentials_ref": m.CredentialsRef,
		"external_id":     m.ExternalID,
		"status":          m.Status,
		"attempts":        m.Attempts,
		"last_error":      m.LastError,
		"last_attempt_at": m.LastAttemptAt,
		"confirmed_at":    m.ConfirmedAt,
		"version":         m.Version,
		"updated_at":      m.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrentModification, "The shipment has been modified concurrently")
	}
	s.Version = m.Version
	return nil
}
