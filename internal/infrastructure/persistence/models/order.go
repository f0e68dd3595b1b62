package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	AggregateModel
	OrderNumber string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	SellerID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	SellerRole  string           `gorm:"type:varchar(20);not null"`
	BuyerID     *uuid.UUID       `gorm:"type:uuid;index"`
	FulfillerID *uuid.UUID       `gorm:"type:uuid;index"`
	Items       []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	Status      order.Status     `gorm:"type:varchar(20);not null;default:'pending';index"`

	RecipientName     string `gorm:"type:varchar(200);not null"`
	RecipientPhone    string `gorm:"type:varchar(50);not null"`
	RecipientRegionID string `gorm:"type:varchar(50)"`
	RecipientAddress  string `gorm:"type:varchar(500);not null"`
	RecipientNote     string `gorm:"type:varchar(500)"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Commission     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MarketerProfit decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	TrackingNumber string `gorm:"type:varchar(100)"`
	Carrier        string `gorm:"type:varchar(50)"`
	Notes          string `gorm:"type:text"`

	ConfirmedAt  *time.Time
	ConfirmedBy  *uuid.UUID `gorm:"type:uuid"`
	ProcessingAt *time.Time
	ProcessingBy *uuid.UUID `gorm:"type:uuid"`
	ShippedAt    *time.Time
	ShippedBy    *uuid.UUID `gorm:"type:uuid"`
	DeliveredAt  *time.Time `gorm:"index"`
	DeliveredBy  *uuid.UUID `gorm:"type:uuid"`
	CancelledAt  *time.Time
	CancelledBy  *uuid.UUID `gorm:"type:uuid"`
	ReturnedAt   *time.Time
	ReturnedBy   *uuid.UUID `gorm:"type:uuid"`

	ProfitsDistributed   bool `gorm:"not null;default:false;index"`
	ProfitsDistributedAt *time.Time
	ShipmentID           *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		SellerID:          m.SellerID,
		SellerRole:        shared.Role(m.SellerRole),
		BuyerID:           m.BuyerID,
		FulfillerID:       m.FulfillerID,
		Status:            m.Status,
		Recipient: order.Recipient{
			Name:     m.RecipientName,
			Phone:    m.RecipientPhone,
			RegionID: m.RecipientRegionID,
			Address:  m.RecipientAddress,
			Note:     m.RecipientNote,
		},
		Subtotal:             m.Subtotal,
		ShippingCost:         m.ShippingCost,
		Commission:           m.Commission,
		MarketerProfit:       m.MarketerProfit,
		Total:                m.Total,
		TrackingNumber:       m.TrackingNumber,
		Carrier:              m.Carrier,
		Notes:                m.Notes,
		ConfirmedAt:          m.ConfirmedAt,
		ConfirmedBy:          m.ConfirmedBy,
		ProcessingAt:         m.ProcessingAt,
		ProcessingBy:         m.ProcessingBy,
		ShippedAt:            m.ShippedAt,
		ShippedBy:            m.ShippedBy,
		DeliveredAt:          m.DeliveredAt,
		DeliveredBy:          m.DeliveredBy,
		CancelledAt:          m.CancelledAt,
		CancelledBy:          m.CancelledBy,
		ReturnedAt:           m.ReturnedAt,
		ReturnedBy:           m.ReturnedBy,
		ProfitsDistributed:   m.ProfitsDistributed,
		ProfitsDistributedAt: m.ProfitsDistributedAt,
		ShipmentID:           m.ShipmentID,
		Items:                make([]order.Item, len(m.Items)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SellerID = o.SellerID
	m.SellerRole = string(o.SellerRole)
	m.BuyerID = o.BuyerID
	m.FulfillerID = o.FulfillerID
	m.Status = o.Status
	m.RecipientName = o.Recipient.Name
	m.RecipientPhone = o.Recipient.Phone
	m.RecipientRegionID = o.Recipient.RegionID
	m.RecipientAddress = o.Recipient.Address
	m.RecipientNote = o.Recipient.Note
	m.Subtotal = o.Subtotal
	m.ShippingCost = o.ShippingCost
	m.Commission = o.Commission
	m.MarketerProfit = o.MarketerProfit
	m.Total = o.Total
	m.TrackingNumber = o.TrackingNumber
	m.Carrier = o.Carrier
	m.Notes = o.Notes
	m.ConfirmedAt, m.ConfirmedBy = o.ConfirmedAt, o.ConfirmedBy
	m.ProcessingAt, m.ProcessingBy = o.ProcessingAt, o.ProcessingBy
	m.ShippedAt, m.ShippedBy = o.ShippedAt, o.ShippedBy
	m.DeliveredAt, m.DeliveredBy = o.DeliveredAt, o.DeliveredBy
	m.CancelledAt, m.CancelledBy = o.CancelledAt, o.CancelledBy
	m.ReturnedAt, m.ReturnedBy = o.ReturnedAt, o.ReturnedBy
	m.ProfitsDistributed = o.ProfitsDistributed
	m.ProfitsDistributedAt = o.ProfitsDistributedAt
	m.ShipmentID = o.ShipmentID
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.ID, o.Items[i], o.CreatedAt)
	}
}

// TransitionColumns returns the columns a status transition may change
func (m *OrderModel) TransitionColumns() map[string]any {
	return map[string]any{
		"status":          m.Status,
		"tracking_number": m.TrackingNumber,
		"carrier":         m.Carrier,
		"notes":           m.Notes,
		"confirmed_at":    m.ConfirmedAt,
		"confirmed_by":    m.ConfirmedBy,
		"processing_at":   m.ProcessingAt,
		"processing_by":   m.ProcessingBy,
		"shipped_at":      m.ShippedAt,
		"shipped_by":      m.ShippedBy,
		"delivered_at":    m.DeliveredAt,
		"delivered_by":    m.DeliveredBy,
		"cancelled_at":    m.CancelledAt,
		"cancelled_by":    m.CancelledBy,
		"returned_at":     m.ReturnedAt,
		"returned_by":     m.ReturnedBy,
		"version":         m.Version,
		"updated_at":      m.UpdatedAt,
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		BasePrice:   m.BasePrice,
	}
}

// OrderItemModelFromDomain creates a persistence model for an item of orderID
func OrderItemModelFromDomain(orderID uuid.UUID, it order.Item, createdAt time.Time) OrderItemModel {
	return OrderItemModel{
		ID:          it.ID,
		OrderID:     orderID,
		ProductID:   it.ProductID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		BasePrice:   it.BasePrice,
		CreatedAt:   createdAt,
	}
}
