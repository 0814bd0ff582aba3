package ledger

import (
	"context"
	"testing"

	"streampay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, svc Service, userID uint, currency string, balance float64) *models.Wallet {
	t.Helper()
	w, err := svc.CreateWallet(context.Background(), userID, currency)
	require.NoError(t, err)
	if balance > 0 {
		// A generous deposit minus the 2% fee lands at the requested
		// balance: gross = balance / 0.98.
		_, err = svc.Deposit(context.Background(), w.ID, balance/0.98, "seed")
		require.NoError(t, err)
	}
	w, err = svc.GetWallet(context.Background(), w.ID)
	require.NoError(t, err)
	return w
}

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore())

	t.Run("defaults to USD", func(t *testing.T) {
		w, err := svc.CreateWallet(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, "USD", w.Currency)
		assert.True(t, w.IsActive)
		assert.Zero(t, w.Balance)
	})

	t.Run("one wallet per user and currency", func(t *testing.T) {
		_, err := svc.CreateWallet(ctx, 1, "USD")
		assert.ErrorIs(t, err, ErrWalletExists)
	})

	t.Run("second currency allowed", func(t *testing.T) {
		w, err := svc.CreateWallet(ctx, 1, "EUR")
		require.NoError(t, err)
		assert.Equal(t, "EUR", w.Currency)
	})
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits net of fee", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		w, err := svc.CreateWallet(ctx, 1, "USD")
		require.NoError(t, err)

		tx, err := svc.Deposit(ctx, w.ID, 100, "stream payout")
		require.NoError(t, err)

		assert.Equal(t, models.TransactionTypeDeposit, tx.Type)
		assert.InDelta(t, 98, tx.Amount, 1e-9)
		assert.InDelta(t, 2, tx.FeeAmount, 1e-9)
		assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
		assert.NotEmpty(t, tx.Reference)

		balance, err := svc.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 98, balance, 1e-9)

		w, err = svc.GetWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 98, w.TotalDeposits, 1e-9)
		assert.InDelta(t, 2, w.TotalFees, 1e-9)
		assert.NotNil(t, w.LastTransactionAt)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		w, err := svc.CreateWallet(ctx, 1, "USD")
		require.NoError(t, err)

		_, err = svc.Deposit(ctx, w.ID, 0, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.Deposit(ctx, w.ID, -10, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects inactive wallet", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		w, err := svc.CreateWallet(ctx, 1, "USD")
		require.NoError(t, err)
		require.NoError(t, svc.DeactivateWallet(ctx, w.ID))

		_, err = svc.Deposit(ctx, w.ID, 100, "")
		assert.ErrorIs(t, err, ErrWalletInactive)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())
		_, err := svc.Deposit(ctx, 999, 100, "")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("debits principal plus fee with a linked fee entry", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store)
		w := seedWallet(t, svc, 1, "USD", 200)

		tx, err := svc.Withdraw(ctx, w.ID, 100, "cash out")
		require.NoError(t, err)

		assert.InDelta(t, -100, tx.Amount, 1e-9)
		assert.InDelta(t, 2, tx.FeeAmount, 1e-9)

		balance, err := svc.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 98, balance, 1e-9)

		linked, err := (&fakeTransactionRepo{store: store}).GetByReference(ctx, tx.Reference)
		require.NoError(t, err)
		require.Len(t, linked, 2)
		var feeEntry *models.Transaction
		for _, e := range linked {
			if e.Type == models.TransactionTypeFee {
				feeEntry = e
			}
		}
		require.NotNil(t, feeEntry)
		assert.InDelta(t, -2, feeEntry.Amount, 1e-9)

		w, err = svc.GetWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 100, w.TotalWithdrawals, 1e-9)
	})

	t.Run("insufficient funds leaves everything untouched", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store)
		w := seedWallet(t, svc, 1, "USD", 50)

		_, err := svc.Withdraw(ctx, w.ID, 50, "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		balance, err := svc.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 50, balance, 1e-9)

		history, err := svc.GetHistory(ctx, w.ID, 50, 0)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("fee counts against the balance check", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestService(store)
		w := seedWallet(t, svc, 1, "USD", 100)

		// 100 principal + 2 fee > 100 balance.
		_, err := svc.Withdraw(ctx, w.ID, 100, "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}

func TestChargeFee(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)
	w := seedWallet(t, svc, 1, "USD", 100)

	tx, err := svc.ChargeFee(ctx, w.ID, 50, "platform service fee", "TRANSACTION")
	require.NoError(t, err)

	assert.Equal(t, models.TransactionTypeFee, tx.Type)
	assert.InDelta(t, -1, tx.Amount, 1e-9)
	assert.Equal(t, "TRANSACTION", tx.Metadata["fee_type"])

	balance, err := svc.GetBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.InDelta(t, 99, balance, 1e-9)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (Service, *fakeStore, *models.Wallet, *models.Transaction) {
		store := newFakeStore()
		svc, _ := newTestService(store)
		w := seedWallet(t, svc, 1, "USD", 200)

		original, err := svc.Withdraw(ctx, w.ID, 100, "order 42")
		require.NoError(t, err)
		// Tag the entry with an external reference the way a gateway
		// settlement would.
		for _, tx := range store.transactions {
			if tx.ID == original.ID {
				tx.ExternalID = "ext_42"
			}
		}
		return svc, store, w, original
	}

	t.Run("full refund by default", func(t *testing.T) {
		svc, _, w, _ := setup(t)

		tx, err := svc.Refund(ctx, w.ID, "ext_42", 0, "order cancelled")
		require.NoError(t, err)
		assert.Equal(t, models.TransactionTypeRefund, tx.Type)
		assert.InDelta(t, 100, tx.Amount, 1e-9)

		balance, err := svc.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, 198, balance, 1e-9)
	})

	t.Run("partial refund", func(t *testing.T) {
		svc, _, w, _ := setup(t)

		tx, err := svc.Refund(ctx, w.ID, "ext_42", 40, "partial")
		require.NoError(t, err)
		assert.InDelta(t, 40, tx.Amount, 1e-9)
	})

	t.Run("refund above original is rejected", func(t *testing.T) {
		svc, _, w, _ := setup(t)

		_, err := svc.Refund(ctx, w.ID, "ext_42", 150, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("repeated refunds are capped at the original in total", func(t *testing.T) {
		svc, _, w, _ := setup(t)

		_, err := svc.Refund(ctx, w.ID, "ext_42", 60, "first")
		require.NoError(t, err)

		// 40 remains, so another 50 would over-refund.
		_, err = svc.Refund(ctx, w.ID, "ext_42", 50, "second")
		assert.ErrorIs(t, err, ErrInvalidAmount)

		tx, err := svc.Refund(ctx, w.ID, "ext_42", 40, "second")
		require.NoError(t, err)
		assert.InDelta(t, 40, tx.Amount, 1e-9)

		// Fully refunded now, even the default refund is rejected.
		_, err = svc.Refund(ctx, w.ID, "ext_42", 0, "third")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown reference", func(t *testing.T) {
		svc, _, w, _ := setup(t)

		_, err := svc.Refund(ctx, w.ID, "ext_missing", 10, "")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("reference owned by another wallet", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		other, err := svc.CreateWallet(ctx, 2, "USD")
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, other.ID, 100, "seed")
		require.NoError(t, err)

		_, err = svc.Refund(ctx, other.ID, "ext_42", 10, "")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestDeactivateReactivate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore())
	w := seedWallet(t, svc, 1, "USD", 100)

	require.NoError(t, svc.DeactivateWallet(ctx, w.ID))
	_, err := svc.Withdraw(ctx, w.ID, 10, "")
	assert.ErrorIs(t, err, ErrWalletInactive)

	// Balance survives deactivation and reads still work.
	balance, err := svc.GetBalance(ctx, w.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, balance, 1e-9)

	require.NoError(t, svc.ReactivateWallet(ctx, w.ID))
	_, err = svc.Withdraw(ctx, w.ID, 10, "")
	assert.NoError(t, err)
}

func TestGetHistoryAndStats(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)
	w := seedWallet(t, svc, 1, "USD", 980)

	_, err := svc.Withdraw(ctx, w.ID, 100, "")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, w.ID, 50, "")
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		history, err := svc.GetHistory(ctx, w.ID, 50, 0)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		assert.Equal(t, models.TransactionTypeDeposit, history[0].Type)
		for i := 1; i < len(history); i++ {
			assert.GreaterOrEqual(t, history[i-1].ID, history[i].ID)
		}
	})

	t.Run("filter by type", func(t *testing.T) {
		fees, err := svc.GetTransactionsByType(ctx, w.ID, models.TransactionTypeFee, 50, 0)
		require.NoError(t, err)
		require.Len(t, fees, 1)
		assert.InDelta(t, -2, fees[0].Amount, 1e-9)
	})

	t.Run("stats net equals balance", func(t *testing.T) {
		stats, err := svc.GetTransactionStats(ctx, w.ID)
		require.NoError(t, err)
		balance, err := svc.GetBalance(ctx, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, balance, stats.Net, 1e-6)
		assert.Equal(t, int64(2), stats.ByType[models.TransactionTypeDeposit].Count)
	})
}

func TestCheckConsistency(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)
	w := seedWallet(t, svc, 1, "USD", 980)

	_, err := svc.Withdraw(ctx, w.ID, 200, "")
	require.NoError(t, err)

	report, err := svc.CheckConsistency(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.InDelta(t, report.Balance, report.LedgerSum, 1e-6)

	// Corrupt the stored balance behind the ledger's back.
	store.wallets[w.ID].Balance += 10

	report, err = svc.CheckConsistency(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
}

func TestGetPlatformSummary(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)
	seedWallet(t, svc, 1, "USD", 100)
	seedWallet(t, svc, 2, "USD", 50)
	eur := seedWallet(t, svc, 3, "EUR", 30)

	require.NoError(t, svc.DeactivateWallet(ctx, eur.ID))

	summary, err := svc.GetPlatformSummary(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", summary.Currency)
	assert.InDelta(t, 150, summary.TotalBalance, 1e-9)
	assert.EqualValues(t, 2, summary.ActiveWallets)
}
