package shipment

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeShipmentConfirmed      = "ShipmentConfirmed"
	EventTypeShipmentDispatchFailed = "ShipmentDispatchFailed"
)

// ShipmentConfirmedEvent is raised when a carrier accepts a shipment
type ShipmentConfirmedEvent struct {
	shared.BaseDomainEvent
	ShipmentID  uuid.UUID `json:"shipment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CarrierCode string    `json:"carrier_code"`
	ExternalID  string    `json:"external_id"`
}

func NewShipmentConfirmedEvent(s *Shipment) *ShipmentConfirmedEvent {
	return &ShipmentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentConfirmed, AggregateTypeShipment, s.ID),
		ShipmentID:      s.ID,
		OrderID:         s.OrderID,
		OrderNumber:     s.OrderNumber,
		CarrierCode:     s.CarrierCode,
		ExternalID:      s.ExternalID,
	}
}

// ShipmentDispatchFailedEvent is raised for every failed carrier attempt
type ShipmentDispatchFailedEvent struct {
	shared.BaseDomainEvent
	ShipmentID  uuid.UUID `json:"shipment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CarrierCode string    `json:"carrier_code"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error"`
	CanRetry    bool      `json:"can_retry"`
}

func NewShipmentDispatchFailedEvent(s *Shipment, canRetry bool) *ShipmentDispatchFailedEvent {
	return &ShipmentDispatchFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentDispatchFailed, AggregateTypeShipment, s.ID),
		ShipmentID:      s.ID,
		OrderID:         s.OrderID,
		OrderNumber:     s.OrderNumber,
		CarrierCode:     s.CarrierCode,
		Attempts:        s.Attempts,
		Error:           s.LastError,
		CanRetry:        canRetry,
	}
}
