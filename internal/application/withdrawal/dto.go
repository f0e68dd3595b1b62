package withdrawal

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestWithdrawalInput is the body of a withdrawal request
type RequestWithdrawalInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination" binding:"required,max=200"`
	Notes       string          `json:"notes" binding:"max=500"`
}

// RejectWithdrawalInput is the body of a rejection
type RejectWithdrawalInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// WithdrawalResponse is the API view of a withdrawal debit
type WithdrawalResponse struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	Remark      string          `json:"remark,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// toWithdrawalResponse rebuilds the request split from the debit's metadata
func toWithdrawalResponse(tx *ledger.Transaction) *WithdrawalResponse {
	resp := &WithdrawalResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Amount:      tx.Amount,
		FeeAmount:   decimal.Zero,
		TotalAmount: tx.Amount,
		Status:      string(tx.Status),
		Remark:      tx.Remark,
		ProcessedAt: tx.ProcessedAt,
		CreatedAt:   tx.CreatedAt,
	}
	if v, ok := metadataDecimal(tx.Metadata, "amount"); ok {
		resp.Amount = v
	}
	if v, ok := metadataDecimal(tx.Metadata, "fee_amount"); ok {
		resp.FeeAmount = v
	}
	if d, ok := tx.Metadata["destination"].(string); ok {
		resp.Destination = d
	}
	return resp
}

func metadataDecimal(m map[string]any, key string) (decimal.Decimal, bool) {
	switch v := m[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	}
	return decimal.Zero, false
}
