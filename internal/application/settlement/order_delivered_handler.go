package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderDeliveredHandler distributes profits when an order is delivered.
// It is subscribed behind an IdempotentHandler; redeliveries that slip
// through are absorbed by the distribution guard.
type OrderDeliveredHandler struct {
	distributor *ProfitDistributionService
	logger      *zap.Logger
}

// NewOrderDeliveredHandler creates a new OrderDeliveredHandler
func NewOrderDeliveredHandler(distributor *ProfitDistributionService, logger *zap.Logger) *OrderDeliveredHandler {
	return &OrderDeliveredHandler{distributor: distributor, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderDeliveredHandler) EventTypes() []string {
	return []string{order.EventTypeOrderDelivered}
}

// Handle processes an OrderDelivered event
func (h *OrderDeliveredHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	evt, ok := event.(*order.StatusChangedEvent)
	if !ok || evt.EventType() != order.EventTypeOrderDelivered {
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderDelivered, event.EventType())
	}

	err := h.distributor.Distribute(ctx, evt.OrderID)
	if errors.Is(err, shared.ErrAlreadyDistributed) {
		h.logger.Debug("Profits already distributed", zap.String("order_id", evt.OrderID.String()))
		return nil
	}
	if err != nil {
		h.logger.Error("Profit distribution failed",
			zap.String("order_id", evt.OrderID.String()),
			zap.String("order_number", evt.OrderNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}
