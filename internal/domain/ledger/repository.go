package ledger

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists accounts and their transaction log.
// Every mutating method is a single atomic unit against the store.
type Repository interface {
	// FindAccount returns the account, or NOT_FOUND if it was never referenced
	FindAccount(ctx context.Context, accountID uuid.UUID) (*Account, error)

	// FindTransaction returns a transaction by ID
	FindTransaction(ctx context.Context, txID uuid.UUID) (*Transaction, error)

	// FindTransactions lists an account's transactions, oldest first
	FindTransactions(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Transaction, int64, error)

	// Record lazily creates the account and appends tx, applying it to the
	// balances. If (account, idempotency key) already exists it returns the
	// stored transaction with created=false and changes nothing.
	Record(ctx context.Context, tx *Transaction) (stored *Transaction, created bool, err error)

	// Finalize moves a pending debit to approved and realizes it against the balance
	Finalize(ctx context.Context, txID, approver uuid.UUID, at time.Time) (*Transaction, error)

	// Reject moves a pending debit to rejected and releases pendingWithdrawals
	Reject(ctx context.Context, txID, approver uuid.UUID, at time.Time, reason string) (*Transaction, error)
}
