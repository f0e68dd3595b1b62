package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.Repository = (*GormOrderRepository)(nil)

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order", id.String())
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByIDs finds orders by ID. Missing IDs are skipped.
func (r *GormOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]order.Order, error) {
	if len(ids) == 0 {
		return []order.Order{}, nil
	}
	var ms []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id IN ?", ids).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(ms), nil
}

// FindByOrderNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&m, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order", orderNumber)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll lists orders matching the filter and the total match count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	var total int64
	if err := r.applyFilters(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	sortDir := ValidateSortOrder(filter.OrderDir)

	var ms []models.OrderModel
	if err := r.applyFilters(r.db.WithContext(ctx), filter).
		Preload("Items").
		Order(sortField + " " + sortDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toDomainOrders(ms), total, nil
}

// FindUndistributed returns delivered orders with profits still pending, oldest delivery first
func (r *GormOrderRepository) FindUndistributed(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var ms []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND profits_distributed = ?", order.StatusDelivered, false).
		Order("delivered_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(ms), nil
}

// Create inserts a new order and its items
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	m := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderModel{}).
			Where("order_number = ?", o.OrderNumber).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Order number already exists: "+o.OrderNumber)
		}
		return tx.Create(m).Error
	})
}

// SaveWithLock persists a transition with an optimistic version check.
// Items and monetary fields are immutable and never rewritten.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		res := tx.Model(&models.OrderModel{}).
			Where("id = ?", o.ID).
			Select("version").
			Scan(&currentVersion)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.NewNotFoundError("order", o.ID.String())
		}
		if currentVersion != o.Version {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The order has been modified by another user")
		}

		m := models.OrderModelFromDomain(o)
		m.Version = currentVersion + 1

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, currentVersion).
			Updates(m.TransitionColumns())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeConcurrentModification, "The order has been modified by another user")
		}

		o.Version = m.Version
		return nil
	})
}

// MarkProfitsDistributed flips the distribution guard in a single conditional
// update so that concurrent distributors cannot both succeed.
func (r *GormOrderRepository) MarkProfitsDistributed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND status = ? AND profits_distributed = ?", id, order.StatusDelivered, false).
		Updates(map[string]any{
			"profits_distributed":    true,
			"profits_distributed_at": at,
			"updated_at":             at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.distributionConflict(ctx, id)
	}
	return nil
}

// distributionConflict explains why the conditional update matched no row.
// An order that left delivered before the flip is an invalid transition,
// not a completed distribution.
func (r *GormOrderRepository) distributionConflict(ctx context.Context, id uuid.UUID) error {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Select("order_number", "status", "profits_distributed").
		First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError("order", id.String())
		}
		return err
	}
	if m.ProfitsDistributed {
		return shared.ErrAlreadyDistributed
	}
	return shared.NewInvalidTransitionError("Order %s is %s, profits cannot be marked distributed", m.OrderNumber, m.Status)
}

// AttachShipment links a shipment without touching status or version
func (r *GormOrderRepository) AttachShipment(ctx context.Context, id, shipmentID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("shipment_id", shipmentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("order", id.String())
	}
	return nil
}

func (r *GormOrderRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			if s, ok := value.(string); ok && s != "" {
				query = query.Where("status = ?", strings.ToLower(s))
			}
		case "seller_id":
			query = query.Where("seller_id = ?", value)
		case "fulfiller_id":
			query = query.Where("fulfiller_id = ?", value)
		case "owner_id":
			// fulfiller if assigned, otherwise seller
			query = query.Where("(fulfiller_id = ?) OR (fulfiller_id IS NULL AND seller_id = ?)", value, value)
		case "profits_distributed":
			query = query.Where("profits_distributed = ?", value)
		case "from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "to":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}
	return query
}

func toDomainOrders(ms []models.OrderModel) []order.Order {
	out := make([]order.Order, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}
