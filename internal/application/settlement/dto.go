package settlement

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddTransactionInput is the input of LedgerService.AddTransaction
type AddTransactionInput struct {
	AccountID      uuid.UUID
	Direction      ledger.Direction
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
	SourceType     ledger.SourceType
	SourceID       string
	Metadata       map[string]any
}

// AccountResponse is the balance view of an account
type AccountResponse struct {
	AccountID          uuid.UUID       `json:"account_id"`
	Balance            decimal.Decimal `json:"balance"`
	AvailableBalance   decimal.Decimal `json:"available_balance"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	TotalEarnings      decimal.Decimal `json:"total_earnings"`
	TotalWithdrawals   decimal.Decimal `json:"total_withdrawals"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToAccountResponse converts an account to its API view
func ToAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		AccountID:          a.ID,
		Balance:            a.Balance,
		AvailableBalance:   a.AvailableBalance(),
		PendingWithdrawals: a.PendingWithdrawals,
		TotalEarnings:      a.TotalEarnings,
		TotalWithdrawals:   a.TotalWithdrawals,
		UpdatedAt:          a.UpdatedAt,
	}
}

// TransactionResponse is the API view of a ledger transaction
type TransactionResponse struct {
	ID          uuid.UUID      `json:"id"`
	AccountID   uuid.UUID      `json:"account_id"`
	Direction   string         `json:"direction"`
	Amount      string         `json:"amount"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	SourceType  string         `json:"source_type,omitempty"`
	SourceID    string         `json:"source_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ProcessedBy *uuid.UUID     `json:"processed_by,omitempty"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	Remark      string         `json:"remark,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ToTransactionResponse converts a transaction to its API view
func ToTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Direction:   string(tx.Direction),
		Amount:      tx.Amount.StringFixed(2),
		Description: tx.Description,
		Status:      string(tx.Status),
		SourceType:  string(tx.SourceType),
		SourceID:    tx.SourceID,
		Metadata:    tx.Metadata,
		ProcessedBy: tx.ProcessedBy,
		ProcessedAt: tx.ProcessedAt,
		Remark:      tx.Remark,
		CreatedAt:   tx.CreatedAt,
	}
}

// DistributeRequest selects the orders of a batch distribution
type DistributeRequest struct {
	OrderIDs      []uuid.UUID `json:"order_ids"`
	DistributeAll bool        `json:"distribute_all"`
}

// FailedDistribution is a failed item of a batch
type FailedDistribution struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Error       string    `json:"error"`
}

// DistributionResult aggregates a batch run. Succeeded lists order numbers.
type DistributionResult struct {
	Succeeded []string             `json:"success"`
	Failed    []FailedDistribution `json:"failed"`
}
