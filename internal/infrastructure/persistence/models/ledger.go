package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerAccountModel is the persistence model for a user's balance sheet.
// ID is the owning user's ID.
type LedgerAccountModel struct {
	BaseModel
	Balance            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalEarnings      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalWithdrawals   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PendingWithdrawals decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Version            int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (LedgerAccountModel) TableName() string {
	return "ledger_accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *LedgerAccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseEntity:         m.BaseModel.ToDomain(),
		Balance:            m.Balance,
		TotalEarnings:      m.TotalEarnings,
		TotalWithdrawals:   m.TotalWithdrawals,
		PendingWithdrawals: m.PendingWithdrawals,
		Version:            m.Version,
	}
}

// NewLedgerAccountModel creates a zeroed account row for userID
func NewLedgerAccountModel(userID uuid.UUID, now time.Time) *LedgerAccountModel {
	return &LedgerAccountModel{
		BaseModel:          BaseModel{ID: userID, CreatedAt: now, UpdatedAt: now},
		Balance:            decimal.Zero,
		TotalEarnings:      decimal.Zero,
		TotalWithdrawals:   decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		Version:            1,
	}
}

// LedgerTransactionModel is the persistence model for one ledger entry.
// (account_id, idempotency_key) is unique.
type LedgerTransactionModel struct {
	BaseModel
	AccountID      uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_tx_account_key,priority:1;index"`
	IdempotencyKey string                   `gorm:"type:varchar(150);not null;uniqueIndex:idx_ledger_tx_account_key,priority:2"`
	Direction      ledger.Direction         `gorm:"type:varchar(10);not null"`
	Amount         decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Description    string                   `gorm:"type:varchar(500)"`
	Status         ledger.TransactionStatus `gorm:"type:varchar(20);not null;index"`
	SourceType     ledger.SourceType        `gorm:"type:varchar(30)"`
	SourceID       string                   `gorm:"type:varchar(100);index"`
	Metadata       map[string]any           `gorm:"type:jsonb;serializer:json"`
	ProcessedBy    *uuid.UUID               `gorm:"type:uuid"`
	ProcessedAt    *time.Time
	Remark         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *LedgerTransactionModel) ToDomain() *ledger.Transaction {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &ledger.Transaction{
		BaseEntity:     shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		AccountID:      m.AccountID,
		Direction:      m.Direction,
		Amount:         m.Amount,
		Description:    m.Description,
		IdempotencyKey: m.IdempotencyKey,
		Status:         m.Status,
		SourceType:     m.SourceType,
		SourceID:       m.SourceID,
		Metadata:       metadata,
		ProcessedBy:    m.ProcessedBy,
		ProcessedAt:    m.ProcessedAt,
		Remark:         m.Remark,
	}
}

// LedgerTransactionModelFromDomain creates a persistence model from a domain Transaction
func LedgerTransactionModelFromDomain(t *ledger.Transaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{
		AccountID:      t.AccountID,
		IdempotencyKey: t.IdempotencyKey,
		Direction:      t.Direction,
		Amount:         t.Amount,
		Description:    t.Description,
		Status:         t.Status,
		SourceType:     t.SourceType,
		SourceID:       t.SourceID,
		Metadata:       t.Metadata,
		ProcessedBy:    t.ProcessedBy,
		ProcessedAt:    t.ProcessedAt,
		Remark:         t.Remark,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}
