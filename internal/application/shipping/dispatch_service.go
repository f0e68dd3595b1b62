package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipment"
	"github.com/erp/fulfillment/internal/infrastructure/batch"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatch outcomes reported to metrics
const (
	resultConfirmed = "confirmed"
	resultRetryable = "retryable"
	resultFatal     = "fatal"
)

// DispatchService hands confirmed orders to a carrier and tracks the
// carrier-facing shipment record
type DispatchService struct {
	orderRepo    order.Repository
	shipmentRepo shipment.Repository
	carriers     *shipment.CarrierRegistry
	publisher    shared.EventPublisher
	cfg          config.ShippingConfig
	iterator     *batch.Iterator
	logger       *zap.Logger
	metrics      *telemetry.FulfillmentMetrics
	now          func() time.Time
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	orderRepo order.Repository,
	shipmentRepo shipment.Repository,
	carriers *shipment.CarrierRegistry,
	publisher shared.EventPublisher,
	cfg config.ShippingConfig,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		carriers:     carriers,
		publisher:    publisher,
		cfg:          cfg,
		iterator:     batch.NewIterator(1, cfg.BatchDelay),
		logger:       logger,
		now:          time.Now,
	}
}

// WithMetrics attaches business metrics
func (s *DispatchService) WithMetrics(m *telemetry.FulfillmentMetrics) *DispatchService {
	s.metrics = m
	return s
}

// Dispatch sends the order to carrierCode, creating its shipment on first
// use. An empty carrierCode selects the default carrier. A confirmed
// shipment is returned without calling the carrier.
func (s *DispatchService) Dispatch(ctx context.Context, orderID uuid.UUID, carrierCode string) (result *DispatchResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipping", "Dispatch",
		telemetry.AttrOrderID.String(orderID.String()),
		telemetry.AttrCarrier.String(carrierCode),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	o, err := s.loadDispatchable(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sh, err := s.shipmentRepo.FindByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if sh, err = s.createShipment(ctx, o, carrierCode); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case carrierCode != "" && carrierCode != sh.CarrierCode && !sh.IsConfirmed():
		c, err := s.carriers.Get(carrierCode)
		if err != nil {
			return nil, err
		}
		if err := sh.SwitchCarrier(c.Code(), c.CredentialsRef()); err != nil {
			return nil, err
		}
	}

	return s.attempt(ctx, o, sh)
}

// Resend retries the existing shipment of an order. It never creates one.
func (s *DispatchService) Resend(ctx context.Context, orderID uuid.UUID) (result *DispatchResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipping", "Resend", telemetry.AttrOrderID.String(orderID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	o, err := s.loadDispatchable(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sh, err := s.shipmentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.attempt(ctx, o, sh)
}

// ResendPending retries every pending shipment, one carrier call at a time
// with the configured delay between calls
func (s *DispatchService) ResendPending(ctx context.Context) (*BulkDispatchResult, error) {
	pending, err := s.shipmentRepo.FindPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("load pending shipments: %w", err)
	}

	positions := make([]int, len(pending))
	for i := range positions {
		positions[i] = i
	}
	results := make([]*DispatchResult, len(pending))
	errs := batch.Each(ctx, s.iterator, positions, func(ctx context.Context, i int) error {
		o, err := s.loadDispatchable(ctx, pending[i].OrderID)
		if err != nil {
			return err
		}
		results[i], err = s.attempt(ctx, o, &pending[i])
		return err
	})

	out := &BulkDispatchResult{Confirmed: []string{}, Failed: []FailedDispatch{}}
	for i, err := range errs {
		sh := pending[i]
		if err == nil {
			out.Confirmed = append(out.Confirmed, sh.OrderNumber)
			continue
		}
		out.Failed = append(out.Failed, FailedDispatch{
			OrderID:     sh.OrderID,
			OrderNumber: sh.OrderNumber,
			Error:       err.Error(),
			CanRetry:    results[i] != nil && results[i].CanRetry,
		})
	}

	logger.WithLogger(ctx, s.logger).Info("Pending shipments resent",
		zap.Int("selected", len(pending)),
		zap.Int("confirmed", len(out.Confirmed)),
		zap.Int("failed", len(out.Failed)),
	)
	return out, nil
}

func (s *DispatchService) loadDispatchable(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.IsDispatchable() {
		return nil, shared.NewInvalidTransitionError("Cannot dispatch order %s in %s status", o.OrderNumber, o.Status)
	}
	return o, nil
}

func (s *DispatchService) createShipment(ctx context.Context, o *order.Order, carrierCode string) (*shipment.Shipment, error) {
	if carrierCode == "" {
		carrierCode = s.cfg.DefaultCarrier
	}
	c, err := s.carriers.Get(carrierCode)
	if err != nil {
		return nil, err
	}
	sh, err := shipment.NewShipment(o.ID, o.OrderNumber, c.Code(), c.CredentialsRef())
	if err != nil {
		return nil, err
	}
	if err := s.shipmentRepo.Create(ctx, sh); err != nil {
		// Lost a race with another dispatcher; continue with its record
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.shipmentRepo.FindByOrderID(ctx, o.ID)
		}
		return nil, err
	}
	return sh, nil
}

func (s *DispatchService) attempt(ctx context.Context, o *order.Order, sh *shipment.Shipment) (*DispatchResult, error) {
	log := logger.WithLogger(ctx, s.logger).With(
		logger.OrderID(o.ID),
		logger.ShipmentID(sh.ID),
		zap.String("carrier", sh.CarrierCode),
	)

	if sh.IsConfirmed() {
		log.Debug("Shipment already confirmed", zap.String("external_id", sh.ExternalID))
		return toDispatchResult(sh, false), nil
	}

	c, err := s.carriers.Get(sh.CarrierCode)
	if err != nil {
		return nil, err
	}

	payload := shipment.BuildPayload(o, shipment.PayloadOptions{BarcodePrefix: s.cfg.BarcodePrefix})
	start := time.Now()
	resp, callErr := c.CreateShipment(ctx, payload)
	elapsed := time.Since(start)
	at := s.now()

	// The outcome is recorded even when the caller's deadline cut the call short
	ctx = context.WithoutCancel(ctx)

	if callErr != nil {
		cause := classify(sh.CarrierCode, callErr)
		sh.RecordFailure(cause, at)
		outcome := resultFatal
		if cause.Retryable {
			outcome = resultRetryable
		}
		s.metrics.RecordDispatch(ctx, sh.CarrierCode, outcome, elapsed)

		if err := s.shipmentRepo.SaveWithLock(ctx, sh); err != nil {
			log.Error("Failed to record dispatch failure", zap.Error(err))
		} else {
			s.publish(ctx, sh)
		}
		log.Warn("Shipment dispatch failed",
			zap.Int("attempts", sh.Attempts),
			zap.Bool("can_retry", cause.Retryable),
			zap.Error(cause),
		)
		return toDispatchResult(sh, cause.Retryable), fmt.Errorf("dispatch order %s: %w", o.OrderNumber, cause)
	}

	if err := sh.Confirm(resp.ExternalID, at); err != nil {
		return nil, err
	}
	if err := s.shipmentRepo.SaveWithLock(ctx, sh); err != nil {
		if errors.Is(err, shared.ErrConcurrentModification) {
			if current, findErr := s.shipmentRepo.FindByID(ctx, sh.ID); findErr == nil && current.IsConfirmed() {
				return toDispatchResult(current, false), nil
			}
		}
		return nil, fmt.Errorf("save confirmed shipment: %w", err)
	}
	if err := s.orderRepo.AttachShipment(ctx, o.ID, sh.ID); err != nil {
		log.Error("Failed to link shipment to order", zap.Error(err))
	}
	o.AttachShipment(sh.ID)

	s.metrics.RecordDispatch(ctx, sh.CarrierCode, resultConfirmed, elapsed)
	log.Info("Shipment confirmed",
		zap.String("external_id", sh.ExternalID),
		zap.Int("attempts", sh.Attempts),
		zap.Duration("elapsed", elapsed),
	)
	s.publish(ctx, sh)
	return toDispatchResult(sh, false), nil
}

func (s *DispatchService) publish(ctx context.Context, sh *shipment.Shipment) {
	if err := shared.PublishAndClear(ctx, s.publisher, sh); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to publish shipment events",
			logger.ShipmentID(sh.ID), zap.Error(err))
	}
}

// classify turns any carrier failure into a CarrierError. Adapters that
// already classify are trusted; bare deadline errors are retryable.
func classify(carrierCode string, err error) *shipment.CarrierError {
	var ce *shipment.CarrierError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, shared.ErrExternalRetryable) {
		return shipment.NewTransportError(carrierCode, err)
	}
	return shipment.NewFatalError(carrierCode, err)
}
