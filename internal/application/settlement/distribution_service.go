package settlement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/order"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/batch"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Distribution outcomes reported to metrics
const (
	resultDistributed = "distributed"
	resultSkipped     = "already_distributed"
	resultFailed      = "failed"
)

// ProfitDistributionService credits the seller margin and platform
// commission of delivered orders exactly once
type ProfitDistributionService struct {
	orderRepo order.Repository
	ledger    *LedgerService
	publisher shared.EventPublisher
	cfg       config.SettlementConfig
	iterator  *batch.Iterator
	logger    *zap.Logger
	metrics   *telemetry.FulfillmentMetrics
	now       func() time.Time
}

// NewProfitDistributionService creates a new ProfitDistributionService
func NewProfitDistributionService(
	orderRepo order.Repository,
	ledgerService *LedgerService,
	publisher shared.EventPublisher,
	cfg config.SettlementConfig,
	logger *zap.Logger,
) *ProfitDistributionService {
	return &ProfitDistributionService{
		orderRepo: orderRepo,
		ledger:    ledgerService,
		publisher: publisher,
		cfg:       cfg,
		iterator:  batch.NewIterator(1, cfg.BatchDelay),
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics attaches business metrics
func (s *ProfitDistributionService) WithMetrics(m *telemetry.FulfillmentMetrics) *ProfitDistributionService {
	s.metrics = m
	return s
}

// Distribute settles a single delivered order
func (s *ProfitDistributionService) Distribute(ctx context.Context, orderID uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "Distribute", telemetry.AttrOrderID.String(orderID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	return s.distribute(ctx, o)
}

// DistributeBatch settles the selected orders. Each order is independent:
// a failure is recorded and the batch moves on. Orders that were already
// distributed count as succeeded.
func (s *ProfitDistributionService) DistributeBatch(ctx context.Context, req DistributeRequest) (*DistributionResult, error) {
	if len(req.OrderIDs) == 0 && !req.DistributeAll {
		return nil, shared.NewValidationError("Either order_ids or distribute_all is required")
	}

	result := &DistributionResult{
		Succeeded: []string{},
		Failed:    []FailedDistribution{},
	}

	var orders []order.Order
	var err error
	if req.DistributeAll {
		orders, err = s.orderRepo.FindUndistributed(ctx, s.cfg.BatchSize)
	} else {
		orders, err = s.orderRepo.FindByIDs(ctx, req.OrderIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("load orders for distribution: %w", err)
	}

	if !req.DistributeAll {
		for _, id := range missingIDs(req.OrderIDs, orders) {
			result.Failed = append(result.Failed, FailedDistribution{
				OrderID: id,
				Error:   shared.NewNotFoundError("Order", id).Error(),
			})
		}
	}

	errs := batch.Each(ctx, s.iterator, orders, func(ctx context.Context, o order.Order) error {
		return s.distribute(ctx, &o)
	})
	for i, err := range errs {
		o := orders[i]
		if err == nil || errors.Is(err, shared.ErrAlreadyDistributed) {
			result.Succeeded = append(result.Succeeded, o.OrderNumber)
			continue
		}
		result.Failed = append(result.Failed, FailedDistribution{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Error:       err.Error(),
		})
	}

	logger.WithLogger(ctx, s.logger).Info("Profit distribution batch finished",
		zap.Int("selected", len(orders)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *ProfitDistributionService) distribute(ctx context.Context, o *order.Order) error {
	log := logger.WithLogger(ctx, s.logger).With(logger.OrderID(o.ID), zap.String("order_number", o.OrderNumber))

	if !o.IsDelivered() {
		s.metrics.RecordDistribution(ctx, resultFailed)
		return shared.NewInvalidTransitionError("Order %s is not delivered", o.OrderNumber)
	}
	if o.ProfitsDistributed {
		s.metrics.RecordDistribution(ctx, resultSkipped)
		return shared.ErrAlreadyDistributed
	}

	metadata := map[string]any{"order_number": o.OrderNumber}

	if s.eligible(o.SellerRole) && o.MarketerProfit.IsPositive() {
		if _, err := s.ledger.AddTransaction(ctx, AddTransactionInput{
			AccountID:      o.SellerID,
			Direction:      ledger.DirectionCredit,
			Amount:         o.MarketerProfit,
			Description:    fmt.Sprintf("Profit from order %s", o.OrderNumber),
			IdempotencyKey: ledger.OrderProfitKey(o.ID),
			SourceType:     ledger.SourceTypeOrderProfit,
			SourceID:       o.ID.String(),
			Metadata:       metadata,
		}); err != nil {
			s.metrics.RecordDistribution(ctx, resultFailed)
			return fmt.Errorf("credit seller profit: %w", err)
		}
	}

	if o.Commission.IsPositive() {
		if _, err := s.ledger.AddTransaction(ctx, AddTransactionInput{
			AccountID:      s.cfg.PlatformAccountID,
			Direction:      ledger.DirectionCredit,
			Amount:         o.Commission,
			Description:    fmt.Sprintf("Commission from order %s", o.OrderNumber),
			IdempotencyKey: ledger.OrderCommissionKey(o.ID),
			SourceType:     ledger.SourceTypeOrderCommission,
			SourceID:       o.ID.String(),
			Metadata:       metadata,
		}); err != nil {
			s.metrics.RecordDistribution(ctx, resultFailed)
			return fmt.Errorf("credit platform commission: %w", err)
		}
	}

	at := s.now()
	if err := s.orderRepo.MarkProfitsDistributed(ctx, o.ID, at); err != nil {
		if errors.Is(err, shared.ErrAlreadyDistributed) {
			s.metrics.RecordDistribution(ctx, resultSkipped)
			return err
		}
		if errors.Is(err, shared.ErrInvalidTransition) {
			// Credits are already in the ledger; the order changed status underneath us
			log.Error("Order left delivered during distribution, credits need review",
				zap.String("marketer_profit", o.MarketerProfit.String()),
				zap.String("commission", o.Commission.String()),
				zap.Error(err),
			)
		}
		s.metrics.RecordDistribution(ctx, resultFailed)
		return fmt.Errorf("mark profits distributed: %w", err)
	}

	if err := o.MarkProfitsDistributed(at); err == nil {
		if err := shared.PublishAndClear(ctx, s.publisher, o); err != nil {
			log.Warn("Failed to publish distribution event", zap.Error(err))
		}
	}

	s.metrics.RecordDistribution(ctx, resultDistributed)
	log.Info("Profits distributed",
		zap.String("marketer_profit", o.MarketerProfit.String()),
		zap.String("commission", o.Commission.String()),
	)
	return nil
}

func (s *ProfitDistributionService) eligible(role shared.Role) bool {
	return slices.Contains(s.cfg.EligibleSellerRoles, string(role))
}

func missingIDs(requested []uuid.UUID, found []order.Order) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(found))
	for _, o := range found {
		seen[o.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
			seen[id] = struct{}{}
		}
	}
	return missing
}
