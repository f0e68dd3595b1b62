package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService is the only writer of account balances
type LedgerService struct {
	repo      ledger.Repository
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.FulfillmentMetrics
	now       func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repo ledger.Repository, publisher shared.EventPublisher, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics attaches business metrics
func (s *LedgerService) WithMetrics(m *telemetry.FulfillmentMetrics) *LedgerService {
	s.metrics = m
	return s
}

// AddTransaction appends a transaction to the account's log. Replaying an
// idempotency key returns the stored transaction and changes nothing.
func (s *LedgerService) AddTransaction(ctx context.Context, in AddTransactionInput) (*ledger.Transaction, error) {
	tx, err := ledger.NewTransaction(ledger.NewTransactionInput{
		AccountID:      in.AccountID,
		Direction:      in.Direction,
		Amount:         in.Amount,
		Description:    in.Description,
		IdempotencyKey: in.IdempotencyKey,
		SourceType:     in.SourceType,
		SourceID:       in.SourceID,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	stored, created, err := s.repo.Record(ctx, tx)
	if err != nil {
		return nil, err
	}

	log := logger.WithLogger(ctx, s.logger).With(
		logger.AccountID(stored.AccountID),
		logger.TransactionID(stored.ID),
		zap.String("idempotency_key", stored.IdempotencyKey),
	)
	if !created {
		log.Debug("Ledger transaction already recorded")
		return stored, nil
	}

	s.metrics.RecordLedgerTransaction(ctx, string(stored.Direction), stored.Amount.Shift(2).IntPart())
	log.Info("Ledger transaction recorded",
		zap.String("direction", string(stored.Direction)),
		zap.String("amount", stored.Amount.String()),
	)
	s.publish(ctx, ledger.NewTransactionEvent(ledger.EventTypeTransactionRecorded, stored))
	return stored, nil
}

// FinalizeDebit approves a pending debit and realizes it against the balance
func (s *LedgerService) FinalizeDebit(ctx context.Context, txID, approver uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.repo.Finalize(ctx, txID, approver, s.now())
	if err != nil {
		return nil, err
	}
	logger.WithLogger(ctx, s.logger).Info("Debit finalized",
		logger.TransactionID(tx.ID), logger.AccountID(tx.AccountID), zap.String("amount", tx.Amount.String()))
	return tx, nil
}

// RejectDebit rejects a pending debit, releasing its reservation. The balance is unchanged.
func (s *LedgerService) RejectDebit(ctx context.Context, txID, approver uuid.UUID, reason string) (*ledger.Transaction, error) {
	tx, err := s.repo.Reject(ctx, txID, approver, s.now(), reason)
	if err != nil {
		return nil, err
	}
	logger.WithLogger(ctx, s.logger).Info("Debit rejected",
		logger.TransactionID(tx.ID), logger.AccountID(tx.AccountID), zap.String("reason", reason))
	return tx, nil
}

// GetTransaction returns a transaction by ID
func (s *LedgerService) GetTransaction(ctx context.Context, txID uuid.UUID) (*ledger.Transaction, error) {
	return s.repo.FindTransaction(ctx, txID)
}

// GetAccount returns the balance view of an account. An account that was
// never credited reads as all zeros.
func (s *LedgerService) GetAccount(ctx context.Context, accountID uuid.UUID) (*AccountResponse, error) {
	acc, err := s.repo.FindAccount(ctx, accountID)
	if errors.Is(err, shared.ErrNotFound) {
		return ToAccountResponse(ledger.NewAccount(accountID)), nil
	}
	if err != nil {
		return nil, err
	}
	return ToAccountResponse(acc), nil
}

// ListTransactions returns a page of an account's log
func (s *LedgerService) ListTransactions(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (*shared.Paginated[TransactionResponse], error) {
	txs, total, err := s.repo.FindTransactions(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]TransactionResponse, len(txs))
	for i := range txs {
		items[i] = ToTransactionResponse(&txs[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &page, nil
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("Failed to publish ledger events", zap.Error(err))
	}
}
