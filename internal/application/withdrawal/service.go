package withdrawal

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/application/settlement"
	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// WithdrawalService turns payout requests into pending ledger debits and
// lets administrators settle them
type WithdrawalService struct {
	ledger    *settlement.LedgerService
	publisher shared.EventPublisher
	cfg       config.WithdrawalConfig
	logger    *zap.Logger
	metrics   *telemetry.FulfillmentMetrics
}

// NewWithdrawalService creates a new WithdrawalService
func NewWithdrawalService(
	ledgerService *settlement.LedgerService,
	publisher shared.EventPublisher,
	cfg config.WithdrawalConfig,
	logger *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		ledger:    ledgerService,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithMetrics attaches business metrics
func (s *WithdrawalService) WithMetrics(m *telemetry.FulfillmentMetrics) *WithdrawalService {
	s.metrics = m
	return s
}

// Fee returns the fee charged on top of amount, rounded to cents
func (s *WithdrawalService) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.cfg.FeeRate).Div(hundred).Round(2)
}

// RequestWithdrawal reserves amount plus fee from the actor's available
// balance as a pending debit
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, actor shared.Actor, in RequestWithdrawalInput) (resp *WithdrawalResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "withdrawal", "RequestWithdrawal",
		telemetry.AttrAccountID.String(actor.ID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if actor.ID == uuid.Nil {
		return nil, shared.NewForbiddenError("Withdrawals require an account")
	}
	if strings.TrimSpace(in.Destination) == "" {
		return nil, shared.NewValidationError("Destination is required")
	}
	if in.Amount.LessThan(s.cfg.MinimumAmount) {
		s.metrics.RecordWithdrawal(ctx, "rejected_minimum")
		return nil, shared.NewValidationError("Minimum withdrawal amount is %s", s.cfg.MinimumAmount.StringFixed(2))
	}
	if in.Amount.GreaterThan(s.cfg.MaximumAmount) {
		s.metrics.RecordWithdrawal(ctx, "rejected_maximum")
		return nil, shared.NewValidationError("Maximum withdrawal amount is %s", s.cfg.MaximumAmount.StringFixed(2))
	}

	fee := s.Fee(in.Amount)
	total := in.Amount.Add(fee)

	account, err := s.ledger.GetAccount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if total.GreaterThan(account.AvailableBalance) {
		s.metrics.RecordWithdrawal(ctx, "rejected_balance")
		return nil, shared.NewValidationError("Insufficient available balance: requested %s, available %s",
			total.StringFixed(2), account.AvailableBalance.StringFixed(2))
	}

	requestID := uuid.New()
	tx, err := s.ledger.AddTransaction(ctx, settlement.AddTransactionInput{
		AccountID:      actor.ID,
		Direction:      ledger.DirectionDebit,
		Amount:         total,
		Description:    "Withdrawal to " + strings.TrimSpace(in.Destination),
		IdempotencyKey: ledger.WithdrawalKey(requestID),
		SourceType:     ledger.SourceTypeWithdrawal,
		SourceID:       requestID.String(),
		Metadata: map[string]any{
			"amount":      in.Amount.StringFixed(2),
			"fee_amount":  fee.StringFixed(2),
			"destination": strings.TrimSpace(in.Destination),
			"notes":       in.Notes,
		},
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWithdrawal(ctx, "requested")
	logger.WithLogger(ctx, s.logger).Info("Withdrawal requested",
		logger.AccountID(actor.ID),
		logger.TransactionID(tx.ID),
		zap.String("amount", in.Amount.String()),
		zap.String("fee", fee.String()),
	)
	s.publish(ctx, ledger.NewTransactionEvent(ledger.EventTypeWithdrawalRequested, tx))
	return toWithdrawalResponse(tx), nil
}

// Approve finalizes a pending withdrawal
func (s *WithdrawalService) Approve(ctx context.Context, actor shared.Actor, txID uuid.UUID) (*WithdrawalResponse, error) {
	if err := s.requireAdmin(actor, txID); err != nil {
		return nil, err
	}
	tx, err := s.ledger.FinalizeDebit(ctx, txID, actor.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordWithdrawal(ctx, "approved")
	s.publish(ctx, ledger.NewTransactionEvent(ledger.EventTypeWithdrawalApproved, tx))
	return toWithdrawalResponse(tx), nil
}

// Reject releases a pending withdrawal. The account balance is unchanged.
func (s *WithdrawalService) Reject(ctx context.Context, actor shared.Actor, txID uuid.UUID, reason string) (*WithdrawalResponse, error) {
	if err := s.requireAdmin(actor, txID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("Rejection reason is required")
	}
	tx, err := s.ledger.RejectDebit(ctx, txID, actor.ID, reason)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordWithdrawal(ctx, "rejected")
	s.publish(ctx, ledger.NewTransactionEvent(ledger.EventTypeWithdrawalRejected, tx))
	return toWithdrawalResponse(tx), nil
}

// GetWithdrawal returns a withdrawal visible to the actor
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, actor shared.Actor, txID uuid.UUID) (*WithdrawalResponse, error) {
	tx, err := s.ledger.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.SourceType != ledger.SourceTypeWithdrawal {
		return nil, shared.NewNotFoundError("Withdrawal", txID)
	}
	if !actor.IsAdmin() && !actor.Owns(tx.AccountID) {
		return nil, shared.NewForbiddenError("Withdrawal %s belongs to another account", txID)
	}
	return toWithdrawalResponse(tx), nil
}

func (s *WithdrawalService) requireAdmin(actor shared.Actor, txID uuid.UUID) error {
	if actor.Role != shared.RoleAdmin {
		return shared.NewForbiddenError("Only administrators may settle withdrawal %s", txID)
	}
	return nil
}

func (s *WithdrawalService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to publish withdrawal events", zap.Error(err))
	}
}
