package ledger

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the side of the ledger a transaction hits
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// TransactionStatus tracks the lifecycle of a transaction.
// Credits are completed on creation; withdrawal debits start pending.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

// SourceType identifies what caused a transaction
type SourceType string

const (
	SourceTypeOrderProfit     SourceType = "order_profit"
	SourceTypeOrderCommission SourceType = "order_commission"
	SourceTypeWithdrawal      SourceType = "withdrawal"
)

// Idempotency key builders. Keys are derived from the causing event so a
// replay maps onto the same key.
func OrderProfitKey(orderID uuid.UUID) string     { return "order_profit_" + orderID.String() }
func OrderCommissionKey(orderID uuid.UUID) string { return "admin_profit_" + orderID.String() }
func WithdrawalKey(requestID uuid.UUID) string    { return "withdrawal_" + requestID.String() }

// Transaction is an entry in an account's append-only log.
// Only Status and the processing stamps change after creation.
type Transaction struct {
	shared.BaseEntity
	AccountID      uuid.UUID
	Direction      Direction
	Amount         decimal.Decimal // always positive
	Description    string
	IdempotencyKey string
	Status         TransactionStatus
	SourceType     SourceType
	SourceID       string
	Metadata       map[string]any
	ProcessedBy    *uuid.UUID
	ProcessedAt    *time.Time
	Remark         string
}

// NewTransactionInput carries the fields of a new transaction
type NewTransactionInput struct {
	AccountID      uuid.UUID
	Direction      Direction
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
	SourceType     SourceType
	SourceID       string
	Metadata       map[string]any
}

// NewTransaction validates input and creates a transaction.
// Debits start pending; credits are completed immediately.
func NewTransaction(in NewTransactionInput) (*Transaction, error) {
	if in.AccountID == uuid.Nil {
		return nil, shared.NewValidationError("Account is required")
	}
	if !in.Direction.IsValid() {
		return nil, shared.NewValidationError("Invalid direction: %s", in.Direction)
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("Amount must be positive")
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return nil, shared.NewValidationError("Idempotency key is required")
	}

	status := TransactionStatusCompleted
	if in.Direction == DirectionDebit {
		status = TransactionStatusPending
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Transaction{
		BaseEntity:     shared.NewBaseEntity(),
		AccountID:      in.AccountID,
		Direction:      in.Direction,
		Amount:         in.Amount,
		Description:    in.Description,
		IdempotencyKey: in.IdempotencyKey,
		Status:         status,
		SourceType:     in.SourceType,
		SourceID:       in.SourceID,
		Metadata:       metadata,
	}, nil
}

// IsCredit returns true for credits
func (t *Transaction) IsCredit() bool { return t.Direction == DirectionCredit }

// IsPending returns true while a debit awaits approval
func (t *Transaction) IsPending() bool { return t.Status == TransactionStatusPending }

// Approve finalizes a pending debit
func (t *Transaction) Approve(by uuid.UUID, at time.Time) error {
	if !t.IsPending() {
		return shared.NewInvalidTransitionError("Cannot approve transaction in %s status", t.Status)
	}
	t.Status = TransactionStatusApproved
	t.ProcessedBy = &by
	t.ProcessedAt = &at
	t.Touch(at)
	return nil
}

// Reject cancels a pending debit
func (t *Transaction) Reject(by uuid.UUID, at time.Time, reason string) error {
	if !t.IsPending() {
		return shared.NewInvalidTransitionError("Cannot reject transaction in %s status", t.Status)
	}
	t.Status = TransactionStatusRejected
	t.ProcessedBy = &by
	t.ProcessedAt = &at
	t.Remark = reason
	t.Touch(at)
	return nil
}
