package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(t *testing.T, accountID uuid.UUID, dir Direction, amount int64, key string) *Transaction {
	t.Helper()
	tx, err := NewTransaction(NewTransactionInput{
		AccountID:      accountID,
		Direction:      dir,
		Amount:         decimal.NewFromInt(amount),
		Description:    "test",
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return tx
}

func TestNewTransaction_Validation(t *testing.T) {
	accountID := uuid.New()
	tests := []struct {
		name string
		in   NewTransactionInput
	}{
		{"zero amount", NewTransactionInput{AccountID: accountID, Direction: DirectionCredit, Amount: decimal.Zero, IdempotencyKey: "k"}},
		{"negative amount", NewTransactionInput{AccountID: accountID, Direction: DirectionCredit, Amount: decimal.NewFromInt(-5), IdempotencyKey: "k"}},
		{"missing key", NewTransactionInput{AccountID: accountID, Direction: DirectionCredit, Amount: decimal.NewFromInt(5)}},
		{"bad direction", NewTransactionInput{AccountID: accountID, Direction: "sideways", Amount: decimal.NewFromInt(5), IdempotencyKey: "k"}},
		{"missing account", NewTransactionInput{Direction: DirectionCredit, Amount: decimal.NewFromInt(5), IdempotencyKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(tt.in)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestNewTransaction_StatusByDirection(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, TransactionStatusCompleted, newTx(t, id, DirectionCredit, 10, "c").Status)
	assert.Equal(t, TransactionStatusPending, newTx(t, id, DirectionDebit, 10, "d").Status)
}

func TestAccount_ApplyCredit(t *testing.T) {
	acc := NewAccount(uuid.New())

	require.NoError(t, acc.Apply(newTx(t, acc.ID, DirectionCredit, 100, "a")))

	assert.True(t, decimal.NewFromInt(100).Equal(acc.Balance))
	assert.True(t, decimal.NewFromInt(100).Equal(acc.TotalEarnings))
	assert.True(t, acc.TotalWithdrawals.IsZero())
}

func TestAccount_PendingDebitLifecycle(t *testing.T) {
	acc := NewAccount(uuid.New())
	require.NoError(t, acc.Apply(newTx(t, acc.ID, DirectionCredit, 4000, "a")))

	debit := newTx(t, acc.ID, DirectionDebit, 3000, "w1")
	require.NoError(t, acc.Apply(debit))
	assert.True(t, decimal.NewFromInt(3000).Equal(acc.PendingWithdrawals))
	assert.True(t, decimal.NewFromInt(1000).Equal(acc.AvailableBalance()))
	assert.True(t, decimal.NewFromInt(4000).Equal(acc.Balance))

	t.Run("over-reserve is rejected", func(t *testing.T) {
		err := acc.Apply(newTx(t, acc.ID, DirectionDebit, 1500, "w2"))
		assert.True(t, errors.Is(err, shared.ErrInsufficientBalance))
		assert.True(t, decimal.NewFromInt(3000).Equal(acc.PendingWithdrawals))
	})

	t.Run("finalize realizes the debit", func(t *testing.T) {
		clone := *acc
		require.NoError(t, clone.Finalize(debit.Amount))
		assert.True(t, decimal.NewFromInt(1000).Equal(clone.Balance))
		assert.True(t, clone.PendingWithdrawals.IsZero())
		assert.True(t, decimal.NewFromInt(3000).Equal(clone.TotalWithdrawals))
	})

	t.Run("release leaves balance unchanged", func(t *testing.T) {
		clone := *acc
		require.NoError(t, clone.Release(debit.Amount))
		assert.True(t, decimal.NewFromInt(4000).Equal(clone.Balance))
		assert.True(t, clone.PendingWithdrawals.IsZero())
		assert.True(t, clone.TotalWithdrawals.IsZero())
	})
}

func TestAccount_SettleMoreThanReserved(t *testing.T) {
	acc := NewAccount(uuid.New())
	require.NoError(t, acc.Apply(newTx(t, acc.ID, DirectionCredit, 100, "a")))
	require.NoError(t, acc.Apply(newTx(t, acc.ID, DirectionDebit, 40, "w")))

	assert.True(t, errors.Is(acc.Finalize(decimal.NewFromInt(41)), shared.ErrValidation))
	assert.True(t, errors.Is(acc.Release(decimal.NewFromInt(41)), shared.ErrValidation))
	assert.True(t, decimal.NewFromInt(40).Equal(acc.PendingWithdrawals))
	assert.True(t, decimal.NewFromInt(100).Equal(acc.Balance))
}

func TestAccount_AvailableBalanceNeverNegative(t *testing.T) {
	acc := NewAccount(uuid.New())
	acc.PendingWithdrawals = decimal.NewFromInt(50)
	assert.True(t, acc.AvailableBalance().IsZero())
}

func TestTransaction_ApproveReject(t *testing.T) {
	approver := uuid.New()
	now := time.Now()

	tx := newTx(t, uuid.New(), DirectionDebit, 10, "w")
	require.NoError(t, tx.Approve(approver, now))
	assert.Equal(t, TransactionStatusApproved, tx.Status)
	assert.Equal(t, approver, *tx.ProcessedBy)

	err := tx.Reject(approver, now, "late")
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition))

	tx2 := newTx(t, uuid.New(), DirectionDebit, 10, "w2")
	require.NoError(t, tx2.Reject(approver, now, "wrong iban"))
	assert.Equal(t, "wrong iban", tx2.Remark)
	assert.Error(t, tx2.Approve(approver, now))
}

func TestReplayBalance_Conservation(t *testing.T) {
	acc := NewAccount(uuid.New())
	var log []Transaction

	record := func(tx *Transaction) {
		require.NoError(t, acc.Apply(tx))
		log = append(log, *tx)
	}

	record(newTx(t, acc.ID, DirectionCredit, 500, "c1"))
	record(newTx(t, acc.ID, DirectionCredit, 250, "c2"))

	approved := newTx(t, acc.ID, DirectionDebit, 300, "w1")
	record(approved)
	rejected := newTx(t, acc.ID, DirectionDebit, 100, "w2")
	record(rejected)
	pending := newTx(t, acc.ID, DirectionDebit, 50, "w3")
	record(pending)

	require.NoError(t, approved.Approve(uuid.New(), time.Now()))
	require.NoError(t, acc.Finalize(approved.Amount))
	require.NoError(t, rejected.Reject(uuid.New(), time.Now(), ""))
	require.NoError(t, acc.Release(rejected.Amount))
	log[2], log[3] = *approved, *rejected

	assert.True(t, acc.Balance.Equal(ReplayBalance(log)), "balance %s replay %s", acc.Balance, ReplayBalance(log))
	assert.True(t, decimal.NewFromInt(450).Equal(acc.Balance))
	assert.True(t, decimal.NewFromInt(50).Equal(acc.PendingWithdrawals))
	assert.True(t, decimal.NewFromInt(750).Equal(acc.TotalEarnings))
	assert.True(t, decimal.NewFromInt(300).Equal(acc.TotalWithdrawals))
}

func TestIdempotencyKeys(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	assert.Equal(t, "order_profit_11111111-1111-1111-1111-111111111111", OrderProfitKey(id))
	assert.Equal(t, "admin_profit_11111111-1111-1111-1111-111111111111", OrderCommissionKey(id))
	assert.Equal(t, "withdrawal_11111111-1111-1111-1111-111111111111", WithdrawalKey(id))
}
