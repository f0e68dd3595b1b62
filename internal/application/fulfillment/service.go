package fulfillment

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FulfillmentService places orders and moves them through the fulfillment
// state machine
type FulfillmentService struct {
	orderRepo      order.Repository
	publisher      shared.EventPublisher
	commissionRate decimal.Decimal
	logger         *zap.Logger
	metrics        *telemetry.FulfillmentMetrics
	now            func() time.Time
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	orderRepo order.Repository,
	publisher shared.EventPublisher,
	commissionRate decimal.Decimal,
	logger *zap.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		orderRepo:      orderRepo,
		publisher:      publisher,
		commissionRate: commissionRate,
		logger:         logger,
		now:            time.Now,
	}
}

// WithMetrics attaches business metrics
func (s *FulfillmentService) WithMetrics(m *telemetry.FulfillmentMetrics) *FulfillmentService {
	s.metrics = m
	return s
}

// PlaceOrder creates a pending order. The actor sells the order unless an
// administrator names another seller.
func (s *FulfillmentService) PlaceOrder(ctx context.Context, actor shared.Actor, req PlaceOrderRequest) (*OrderResponse, error) {
	sellerID, sellerRole := actor.ID, actor.Role
	if actor.IsAdmin() && req.SellerID != nil {
		sellerID = *req.SellerID
		sellerRole = shared.Role(req.SellerRole)
		if sellerRole == "" {
			sellerRole = shared.RoleMarketer
		}
	}
	if sellerRole == shared.RoleSystem || sellerRole == shared.RoleCustomer {
		return nil, shared.NewForbiddenError("Role %s cannot sell orders", sellerRole)
	}

	items := make([]order.NewItemInput, len(req.Items))
	for i, it := range req.Items {
		productID := it.ProductID
		if productID == uuid.Nil {
			productID = uuid.New()
		}
		items[i] = order.NewItemInput{
			ProductID:   productID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			BasePrice:   it.BasePrice,
		}
	}

	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber: order.NewOrderNumber(s.now()),
		SellerID:    sellerID,
		SellerRole:  sellerRole,
		BuyerID:     req.BuyerID,
		FulfillerID: req.FulfillerID,
		Recipient: order.Recipient{
			Name:     req.Recipient.Name,
			Phone:    req.Recipient.Phone,
			RegionID: req.Recipient.RegionID,
			Address:  req.Recipient.Address,
			Note:     req.Recipient.Note,
		},
		Items:          items,
		ShippingCost:   req.ShippingCost,
		CommissionRate: s.commissionRate,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Order placed",
		logger.OrderID(o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.String()),
	)
	s.publish(ctx, o)

	return ToOrderResponse(o), nil
}

// GetOrder returns an order visible to the actor
func (s *FulfillmentService) GetOrder(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, o) {
		return nil, shared.NewForbiddenError("Actor %s may not view order %s", actor.ID, o.OrderNumber)
	}
	return ToOrderResponse(o), nil
}

// ListOrders returns a page of orders. Non-administrators only see orders they own.
func (s *FulfillmentService) ListOrders(ctx context.Context, actor shared.Actor, filter shared.Filter) (*shared.Paginated[OrderResponse], error) {
	if filter.Filters == nil {
		filter.Filters = map[string]any{}
	}
	if !actor.IsAdmin() {
		filter.Filters["owner_id"] = actor.ID
	}
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.Limit())
	return &page, nil
}

// Fulfill applies action to the order on behalf of actor.
// Events are published after the save; a failing subscriber never reverts the transition.
func (s *FulfillmentService) Fulfill(
	ctx context.Context,
	orderID uuid.UUID,
	action string,
	actor shared.Actor,
	payload FulfillPayload,
) (resp *FulfillResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "Fulfill",
		telemetry.AttrOrderID.String(orderID.String()),
		telemetry.AttrAction.String(action),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	a, err := order.ParseAction(action)
	if err != nil {
		return nil, err
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status

	if err := o.Apply(a, actor, order.Payload{
		TrackingNumber: payload.TrackingNumber,
		Carrier:        payload.Carrier,
		Notes:          payload.Notes,
	}, s.now()); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(ctx, string(a), from.String(), o.Status.String())
	logger.WithLogger(ctx, s.logger).Info("Order status changed",
		logger.OrderID(o.ID),
		zap.String("action", string(a)),
		zap.String("from", from.String()),
		zap.String("to", o.Status.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	s.publish(ctx, o)

	return &FulfillResponse{Status: o.Status.String(), Order: ToOrderResponse(o)}, nil
}

// AuthorizeAction returns Forbidden unless actor may act on the order.
// Shipment endpoints use it since dispatching carries no actor of its own.
func (s *FulfillmentService) AuthorizeAction(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanBeActedOnBy(actor) {
		return shared.NewForbiddenError("Actor %s may not act on order %s", actor.ID, o.OrderNumber)
	}
	return nil
}

func (s *FulfillmentService) canView(actor shared.Actor, o *order.Order) bool {
	if o.CanBeActedOnBy(actor) || actor.Owns(o.SellerID) {
		return true
	}
	return o.BuyerID != nil && actor.Owns(*o.BuyerID)
}

func (s *FulfillmentService) publish(ctx context.Context, o *order.Order) {
	if err := shared.PublishAndClear(ctx, s.publisher, o); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to publish order events", logger.OrderID(o.ID), zap.Error(err))
	}
}
