package mempool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store/storetest"
)

const alice = "alice-address-000000"
const bob = "bob-address-0000000"

func amt(t *testing.T, v float64) ledgertypes.Amount {
	t.Helper()
	a, err := ledgertypes.NewAmountFromFloat(v)
	require.NoError(t, err)
	return a
}

func TestAdmit_RejectsInsufficientEffectiveBalance(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 10))
	minFee := amt(t, 0.01)
	pool := New(fake, minFee, 100)

	tx := ledgertypes.NewTransaction(alice, bob, amt(t, 20), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)

	err := pool.Admit(ctx, tx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrValidation)
}

func TestAdmit_RejectsBelowMinFee(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 100))
	minFee := amt(t, 1)
	pool := New(fake, minFee, 100)

	tx := ledgertypes.NewTransaction(alice, bob, amt(t, 20), amt(t, 0.1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)

	err := pool.Admit(ctx, tx, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrValidation)
}

func TestAdmit_RejectsUnknownCoin(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 100))
	pool := New(fake, amt(t, 0.01), 100)

	tx := ledgertypes.NewTransaction(alice, bob, amt(t, 20), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)

	err := pool.Admit(ctx, tx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrValidation)
}

func TestAdmit_RejectsWhenMempoolFull(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 1000))
	pool := New(fake, amt(t, 0.01), 1)

	first := ledgertypes.NewTransaction(alice, bob, amt(t, 10), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	require.NoError(t, pool.Admit(ctx, first, true))

	second := ledgertypes.NewTransaction(alice, bob, amt(t, 10), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	err := pool.Admit(ctx, second, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrAdmission)
}

func TestAdmit_AcceptsValidTransferAndInsertsPending(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 100))
	pool := New(fake, amt(t, 0.01), 100)

	tx := ledgertypes.NewTransaction(alice, bob, amt(t, 20), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	require.NoError(t, pool.Admit(ctx, tx, true))

	count, err := fake.CountPendingTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDefaultFee_FloorsAtMinFee(t *testing.T) {
	fake := storetest.New()
	minFee := amt(t, 1)
	pool := New(fake, minFee, 100)

	assert.Equal(t, minFee, pool.DefaultFee(amt(t, 10)), "0.1%% of 10 is below the 1-unit floor")
	assert.Equal(t, amt(t, 5), pool.DefaultFee(amt(t, 5000)))
}

func TestTopForBlock_OrdersByFeeThenAge(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 1000))
	pool := New(fake, amt(t, 0.01), 100)

	low := ledgertypes.NewTransaction(alice, bob, amt(t, 10), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	high := ledgertypes.NewTransaction(alice, bob, amt(t, 10), amt(t, 5), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	require.NoError(t, pool.Admit(ctx, low, true))
	require.NoError(t, pool.Admit(ctx, high, true))

	top, err := pool.TopForBlock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, high.ID, top[0].TxID, "higher-fee transaction should sort first")
}

func TestPriority_AgeCanOvertakeASmallFeeAdvantage(t *testing.T) {
	now := time.Now()
	stale := store.PendingTransactionRecord{
		TxID: "stale", Fee: amt(t, 1), CreatedAt: float64(now.Add(-10 * time.Hour).Unix()),
	}
	fresh := store.PendingTransactionRecord{
		TxID: "fresh", Fee: amt(t, 1.5), CreatedAt: float64(now.Unix()),
	}

	assert.Greater(t, Priority(stale, now), Priority(fresh, now),
		"ten hours of age should outweigh a 0.5-fee advantage")
}

func TestTopForBlock_OrdersByPriorityScoreNotFeeAlone(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	now := time.Now()

	require.NoError(t, fake.WithTx(ctx, func(stx store.Tx) error {
		if err := stx.InsertPendingTransaction(store.PendingTransactionRecord{
			TxID: "stale-lower-fee", Sender: alice, Receiver: bob, Amount: amt(t, 10), Fee: amt(t, 1),
			CoinType: "CAD-COIN", TransactionType: string(ledgertypes.TransactionTransfer),
			CreatedAt: float64(now.Add(-10 * time.Hour).Unix()),
		}); err != nil {
			return err
		}
		return stx.InsertPendingTransaction(store.PendingTransactionRecord{
			TxID: "fresh-higher-fee", Sender: alice, Receiver: bob, Amount: amt(t, 10), Fee: amt(t, 1.5),
			CoinType: "CAD-COIN", TransactionType: string(ledgertypes.TransactionTransfer),
			CreatedAt: float64(now.Unix()),
		})
	}))

	pool := New(fake, amt(t, 0.01), 100)
	top, err := pool.TopForBlock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "stale-lower-fee", top[0].TxID, "ten hours of age should outrank a 0.5 fee edge")
}
