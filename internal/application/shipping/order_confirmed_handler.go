package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderConfirmedHandler dispatches an order to the default carrier as soon
// as it is confirmed. The in-process bus runs it inside the confirm
// request, so the carrier call is bounded by its own timeout; a call that
// runs out leaves the shipment pending for resend.
type OrderConfirmedHandler struct {
	dispatcher *DispatchService
	enabled    bool
	timeout    time.Duration
	logger     *zap.Logger
}

// NewOrderConfirmedHandler creates a new OrderConfirmedHandler. A disabled
// handler acknowledges events without dispatching.
func NewOrderConfirmedHandler(dispatcher *DispatchService, enabled bool, logger *zap.Logger) *OrderConfirmedHandler {
	return &OrderConfirmedHandler{dispatcher: dispatcher, enabled: enabled, logger: logger}
}

// WithTimeout bounds each automatic dispatch. Zero leaves only the carrier
// client's own timeout.
func (h *OrderConfirmedHandler) WithTimeout(d time.Duration) *OrderConfirmedHandler {
	h.timeout = d
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *OrderConfirmedHandler) EventTypes() []string {
	return []string{order.EventTypeOrderConfirmed}
}

// Handle processes an OrderConfirmed event
func (h *OrderConfirmedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	evt, ok := event.(*order.StatusChangedEvent)
	if !ok || evt.EventType() != order.EventTypeOrderConfirmed {
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderConfirmed, event.EventType())
	}
	if !h.enabled {
		return nil
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.dispatcher.Dispatch(ctx, evt.OrderID, "")
	if err != nil {
		fields := []zap.Field{
			zap.String("order_id", evt.OrderID.String()),
			zap.String("order_number", evt.OrderNumber),
			zap.Error(err),
		}
		if result != nil {
			fields = append(fields, zap.Bool("can_retry", result.CanRetry), zap.Int("attempts", result.Attempts))
		}
		h.logger.Warn("Automatic dispatch failed", fields...)
		return err
	}

	h.logger.Info("Order dispatched",
		zap.String("order_number", evt.OrderNumber),
		zap.String("shipment_id", result.ShipmentID.String()),
		zap.String("external_id", result.ExternalID),
	)
	return nil
}
