package ledger

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the per-user balance sheet. Its ID is the owning user's ID.
type Account struct {
	shared.BaseEntity
	Balance            decimal.Decimal
	TotalEarnings      decimal.Decimal
	TotalWithdrawals   decimal.Decimal
	PendingWithdrawals decimal.Decimal
	Version            int
}

// NewAccount creates an account with zero balances
func NewAccount(userID uuid.UUID) *Account {
	base := shared.NewBaseEntity()
	base.ID = userID
	return &Account{
		BaseEntity:         base,
		Balance:            decimal.Zero,
		TotalEarnings:      decimal.Zero,
		TotalWithdrawals:   decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		Version:            1,
	}
}

// AvailableBalance returns max(0, balance − pendingWithdrawals)
func (a *Account) AvailableBalance() decimal.Decimal {
	available := a.Balance.Sub(a.PendingWithdrawals)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Apply folds a newly recorded transaction into the account totals
func (a *Account) Apply(tx *Transaction) error {
	switch {
	case tx.IsCredit():
		a.Balance = a.Balance.Add(tx.Amount)
		a.TotalEarnings = a.TotalEarnings.Add(tx.Amount)
	case tx.Direction == DirectionDebit && tx.IsPending():
		if a.AvailableBalance().LessThan(tx.Amount) {
			return shared.NewDomainError(shared.CodeInsufficientBalance, "Insufficient available balance")
		}
		a.PendingWithdrawals = a.PendingWithdrawals.Add(tx.Amount)
	default:
		return shared.NewValidationError("Cannot apply %s %s transaction", tx.Status, tx.Direction)
	}
	return nil
}

// Finalize realizes a pending debit
func (a *Account) Finalize(amount decimal.Decimal) error {
	if err := a.checkReserved(amount); err != nil {
		return err
	}
	a.PendingWithdrawals = a.PendingWithdrawals.Sub(amount)
	a.Balance = a.Balance.Sub(amount)
	a.TotalWithdrawals = a.TotalWithdrawals.Add(amount)
	return nil
}

// Release reverses a pending debit. Balance is untouched.
func (a *Account) Release(amount decimal.Decimal) error {
	if err := a.checkReserved(amount); err != nil {
		return err
	}
	a.PendingWithdrawals = a.PendingWithdrawals.Sub(amount)
	return nil
}

func (a *Account) checkReserved(amount decimal.Decimal) error {
	if a.PendingWithdrawals.LessThan(amount) {
		return shared.NewValidationError("Account %s has only %s reserved, cannot settle %s", a.ID, a.PendingWithdrawals, amount)
	}
	return nil
}

// ReplayBalance recomputes the balance from the transaction log:
// Σ credits − Σ approved debits.
func ReplayBalance(txs []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.IsCredit():
			balance = balance.Add(tx.Amount)
		case tx.Direction == DirectionDebit && tx.Status == TransactionStatusApproved:
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}
