package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/ledger"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerRepository implements ledger.Repository using GORM.
// Balances change only through ledger.Account, applied to a locked account
// row inside the same transaction that writes the log entry.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

var _ ledger.Repository = (*GormLedgerRepository)(nil)

// FindAccount returns an account by its owner's ID
func (r *GormLedgerRepository) FindAccount(ctx context.Context, accountID uuid.UUID) (*ledger.Account, error) {
	var m models.LedgerAccountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account", accountID.String())
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindTransaction returns a transaction by ID
func (r *GormLedgerRepository) FindTransaction(ctx context.Context, txID uuid.UUID) (*ledger.Transaction, error) {
	var m models.LedgerTransactionModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", txID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("transaction", txID.String())
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindTransactions lists an account's transactions, oldest first unless the filter says otherwise
func (r *GormLedgerRepository) FindTransactions(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.LedgerTransactionModel{}).Where("account_id = ?", accountID)
		for key, value := range filter.Filters {
			switch key {
			case "status":
				q = q.Where("status = ?", value)
			case "direction":
				q = q.Where("direction = ?", value)
			case "source_type":
				q = q.Where("source_type = ?", value)
			}
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, LedgerTransactionSortFields, "created_at")
	sortDir := "ASC"
	if filter.OrderDir != "" {
		sortDir = ValidateSortOrder(filter.OrderDir)
	}

	var ms []models.LedgerTransactionModel
	if err := scoped().
		Order(sortField + " " + sortDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ledger.Transaction, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out, total, nil
}

// Record appends tx to the log and applies it to the account in one transaction
func (r *GormLedgerRepository) Record(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, bool, error) {
	var (
		stored  *ledger.Transaction
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(models.NewLedgerAccountModel(tx.AccountID, tx.CreatedAt)).Error; err != nil {
			return err
		}

		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(models.LedgerTransactionModelFromDomain(tx))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing models.LedgerTransactionModel
			if err := db.Where("account_id = ? AND idempotency_key = ?", tx.AccountID, tx.IdempotencyKey).
				First(&existing).Error; err != nil {
				return err
			}
			stored = existing.ToDomain()
			return nil
		}

		if err := applyToAccount(db, tx.AccountID, tx.CreatedAt, func(a *ledger.Account) error {
			return a.Apply(tx)
		}); err != nil {
			return err
		}

		stored = tx
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Finalize approves a pending debit and realizes it against the balance
func (r *GormLedgerRepository) Finalize(ctx context.Context, txID, approver uuid.UUID, at time.Time) (*ledger.Transaction, error) {
	return r.settle(ctx, txID, at, func(t *ledger.Transaction, a *ledger.Account) error {
		if err := t.Approve(approver, at); err != nil {
			return err
		}
		return a.Finalize(t.Amount)
	})
}

// Reject cancels a pending debit and releases the reserved amount
func (r *GormLedgerRepository) Reject(ctx context.Context, txID, approver uuid.UUID, at time.Time, reason string) (*ledger.Transaction, error) {
	return r.settle(ctx, txID, at, func(t *ledger.Transaction, a *ledger.Account) error {
		if err := t.Reject(approver, at, reason); err != nil {
			return err
		}
		return a.Release(t.Amount)
	})
}

// settle moves a pending debit out of pending. The status update is guarded
// on status = pending so a concurrent settle of the same debit matches no row.
func (r *GormLedgerRepository) settle(
	ctx context.Context,
	txID uuid.UUID,
	at time.Time,
	apply func(t *ledger.Transaction, a *ledger.Account) error,
) (*ledger.Transaction, error) {
	var settled *ledger.Transaction

	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var m models.LedgerTransactionModel
		if err := db.First(&m, "id = ?", txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.NewNotFoundError("transaction", txID.String())
			}
			return err
		}
		t := m.ToDomain()
		if t.Direction != ledger.DirectionDebit {
			return shared.NewValidationError("Only debits can be settled")
		}

		if err := applyToAccount(db, t.AccountID, at, func(a *ledger.Account) error {
			return apply(t, a)
		}); err != nil {
			return err
		}

		res := db.Model(&models.LedgerTransactionModel{}).
			Where("id = ? AND status = ?", txID, ledger.TransactionStatusPending).
			Updates(map[string]any{
				"status":       t.Status,
				"processed_by": t.ProcessedBy,
				"processed_at": t.ProcessedAt,
				"remark":       t.Remark,
				"updated_at":   t.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.NewInvalidTransitionError("Transaction %s is no longer pending", txID)
		}

		settled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// applyToAccount loads the account under a row lock, lets fn apply the
// balance rules of ledger.Account and writes the result back guarded on
// the version it read.
func applyToAccount(db *gorm.DB, accountID uuid.UUID, at time.Time, fn func(a *ledger.Account) error) error {
	var m models.LedgerAccountModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError("account", accountID.String())
		}
		return err
	}

	account := m.ToDomain()
	if err := fn(account); err != nil {
		return err
	}

	res := db.Model(&models.LedgerAccountModel{}).
		Where("id = ? AND version = ?", accountID, m.Version).
		Updates(map[string]any{
			"balance":             account.Balance,
			"total_earnings":      account.TotalEarnings,
			"total_withdrawals":   account.TotalWithdrawals,
			"pending_withdrawals": account.PendingWithdrawals,
			"version":             m.Version + 1,
			"updated_at":          at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}
