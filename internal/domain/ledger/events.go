package ledger

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeAccount is the aggregate type name used in domain events
const AggregateTypeAccount = "LedgerAccount"

const (
	EventTypeTransactionRecorded = "LedgerTransactionRecorded"
	EventTypeWithdrawalRequested = "WithdrawalRequested"
	EventTypeWithdrawalApproved  = "WithdrawalApproved"
	EventTypeWithdrawalRejected  = "WithdrawalRejected"
)

// TransactionEvent describes a change to an account's log
type TransactionEvent struct {
	shared.BaseDomainEvent
	TransactionID  uuid.UUID         `json:"transaction_id"`
	AccountID      uuid.UUID         `json:"account_id"`
	Direction      Direction         `json:"direction"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	SourceType     SourceType        `json:"source_type"`
	SourceID       string            `json:"source_id,omitempty"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// NewTransactionEvent creates an event of the given type for tx
func NewTransactionEvent(eventType string, tx *Transaction) *TransactionEvent {
	return &TransactionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeAccount, tx.AccountID),
		TransactionID:   tx.ID,
		AccountID:       tx.AccountID,
		Direction:       tx.Direction,
		Amount:          tx.Amount,
		Status:          tx.Status,
		SourceType:      tx.SourceType,
		SourceID:        tx.SourceID,
		IdempotencyKey:  tx.IdempotencyKey,
	}
}
