package order

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeOrderPlaced             = "OrderPlaced"
	EventTypeOrderConfirmed          = "OrderConfirmed"
	EventTypeOrderProcessing         = "OrderProcessing"
	EventTypeOrderShipped            = "OrderShipped"
	EventTypeOrderDelivered          = "OrderDelivered"
	EventTypeOrderCancelled          = "OrderCancelled"
	EventTypeOrderReturned           = "OrderReturned"
	EventTypeOrderProfitsDistributed = "OrderProfitsDistributed"
)

// OrderPlacedEvent is raised when a buyer checks out
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	SellerID       uuid.UUID       `json:"seller_id"`
	Total          decimal.Decimal `json:"total"`
	Commission     decimal.Decimal `json:"commission"`
	MarketerProfit decimal.Decimal `json:"marketer_profit"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		SellerID:        o.SellerID,
		Total:           o.Total,
		Commission:      o.Commission,
		MarketerProfit:  o.MarketerProfit,
	}
}

// StatusChangedEvent is raised by every successful transition.
// The concrete type is carried in the embedded event type.
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	SellerID       uuid.UUID   `json:"seller_id"`
	Status         Status      `json:"status"`
	ActorID        uuid.UUID   `json:"actor_id"`
	ActorRole      shared.Role `json:"actor_role"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	Carrier        string      `json:"carrier,omitempty"`
}

func newStatusChangedEvent(eventType string, o *Order, actor shared.Actor) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		SellerID:        o.SellerID,
		Status:          o.Status,
		ActorID:         actor.ID,
		ActorRole:       actor.Role,
		TrackingNumber:  o.TrackingNumber,
		Carrier:         o.Carrier,
	}
}

// NewOrderConfirmedEvent triggers shipment dispatch
func NewOrderConfirmedEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderConfirmed, o, actor)
}

func NewOrderProcessingEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderProcessing, o, actor)
}

func NewOrderShippedEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderShipped, o, actor)
}

// NewOrderDeliveredEvent triggers profit distribution
func NewOrderDeliveredEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderDelivered, o, actor)
}

func NewOrderCancelledEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderCancelled, o, actor)
}

func NewOrderReturnedEvent(o *Order, actor shared.Actor) *StatusChangedEvent {
	return newStatusChangedEvent(EventTypeOrderReturned, o, actor)
}

// ProfitsDistributedEvent is raised once settlement for an order completed
type ProfitsDistributedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	SellerID       uuid.UUID       `json:"seller_id"`
	Commission     decimal.Decimal `json:"commission"`
	MarketerProfit decimal.Decimal `json:"marketer_profit"`
}

// NewProfitsDistributedEvent creates a new ProfitsDistributedEvent
func NewProfitsDistributedEvent(o *Order) *ProfitsDistributedEvent {
	return &ProfitsDistributedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderProfitsDistributed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		SellerID:        o.SellerID,
		Commission:      o.Commission,
		MarketerProfit:  o.MarketerProfit,
	}
}
