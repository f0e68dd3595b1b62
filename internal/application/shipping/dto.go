package shipping

import (
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/google/uuid"
)

// DispatchRequest is the body of a manual dispatch
type DispatchRequest struct {
	Carrier string `json:"carrier"`
}

// DispatchResult reports the state of a shipment after an attempt
type DispatchResult struct {
	ShipmentID  uuid.UUID `json:"shipment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CarrierCode string    `json:"carrier"`
	Status      string    `json:"status"`
	ExternalID  string    `json:"external_id,omitempty"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	CanRetry    bool      `json:"can_retry"`
}

func toDispatchResult(s *shipment.Shipment, canRetry bool) *DispatchResult {
	return &DispatchResult{
		ShipmentID:  s.ID,
		OrderID:     s.OrderID,
		OrderNumber: s.OrderNumber,
		CarrierCode: s.CarrierCode,
		Status:      string(s.Status),
		ExternalID:  s.ExternalID,
		Attempts:    s.Attempts,
		LastError:   s.LastError,
		CanRetry:    canRetry,
	}
}

// FailedDispatch is a failed item of a bulk resend
type FailedDispatch struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Error       string    `json:"error"`
	CanRetry    bool      `json:"can_retry"`
}

// BulkDispatchResult aggregates a bulk resend. Confirmed lists order numbers.
type BulkDispatchResult struct {
	Confirmed []string         `json:"confirmed"`
	Failed    []FailedDispatch `json:"failed"`
}
