package shipment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeShipment is the aggregate type name used in domain events
const AggregateTypeShipment = "Shipment"

// Status of the carrier-facing record
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Shipment tracks the dispatch of one order to a carrier
type Shipment struct {
	shared.BaseAggregateRoot
	OrderID        uuid.UUID
	OrderNumber    string
	CarrierCode    string
	CredentialsRef string
	ExternalID     string
	Status         Status
	Attempts       int
	LastError      string
	LastAttemptAt  *time.Time
	ConfirmedAt    *time.Time
}

// NewShipment creates a pending shipment for an order
func NewShipment(orderID uuid.UUID, orderNumber, carrierCode, credentialsRef string) (*Shipment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewValidationError("Order is required")
	}
	if carrierCode == "" {
		return nil, shared.NewValidationError("Carrier is required")
	}
	return &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		OrderNumber:       orderNumber,
		CarrierCode:       carrierCode,
		CredentialsRef:    credentialsRef,
		Status:            StatusPending,
	}, nil
}

// IsConfirmed reports whether the carrier accepted the shipment
func (s *Shipment) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

// Confirm records the carrier-assigned id
func (s *Shipment) Confirm(externalID string, at time.Time) error {
	if externalID == "" {
		return shared.NewValidationError("Carrier shipment id is required")
	}
	if s.IsConfirmed() {
		return shared.NewInvalidTransitionError("Shipment %s is already confirmed", s.ID)
	}
	s.Status = StatusConfirmed
	s.ExternalID = externalID
	s.Attempts++
	s.LastError = ""
	s.LastAttemptAt = &at
	s.ConfirmedAt = &at
	s.Touch(at)
	s.AddDomainEvent(NewShipmentConfirmedEvent(s))
	return nil
}

// RecordFailure notes a failed attempt. A confirmed shipment is never
// downgraded, so failures against it are ignored.
func (s *Shipment) RecordFailure(cause error, at time.Time) {
	if s.IsConfirmed() {
		return
	}
	s.Status = StatusPending
	s.Attempts++
	s.LastError = cause.Error()
	s.LastAttemptAt = &at
	s.Touch(at)
	s.AddDomainEvent(NewShipmentDispatchFailedEvent(s, IsRetryable(cause)))
}

// SwitchCarrier re-targets a pending shipment to another carrier
func (s *Shipment) SwitchCarrier(carrierCode, credentialsRef string) error {
	if s.IsConfirmed() {
		return shared.NewInvalidTransitionError("Cannot change carrier of a confirmed shipment")
	}
	s.CarrierCode = carrierCode
	s.CredentialsRef = credentialsRef
	return nil
}
