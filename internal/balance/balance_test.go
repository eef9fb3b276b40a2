package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store/storetest"
)

func amt(t *testing.T, v float64) ledgertypes.Amount {
	t.Helper()
	a, err := ledgertypes.NewAmountFromFloat(v)
	require.NoError(t, err)
	return a
}

const alice = "alice-address-000000"
const bob = "bob-address-0000000"

func TestApplyBlock_Transfer(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 100))

	transfer := ledgertypes.NewTransaction(alice, bob, amt(t, 40), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)

	err := fake.WithTx(ctx, func(stx store.Tx) error {
		return ApplyBlock(stx, []*ledgertypes.Transaction{transfer})
	})
	require.NoError(t, err)

	aliceBal, err := fake.GetBalance(ctx, alice, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 59), aliceBal)

	bobBal, err := fake.GetBalance(ctx, bob, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 40), bobBal)
}

func TestApplyBlock_MiningRewardCreditsOnly(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	reward := ledgertypes.NewTransaction("mining_reward", alice, amt(t, 50), 0, "CAD-COIN", ledgertypes.TransactionMiningReward, nil)

	err := fake.WithTx(ctx, func(stx store.Tx) error {
		return ApplyBlock(stx, []*ledgertypes.Transaction{reward})
	})
	require.NoError(t, err)

	aliceBal, err := fake.GetBalance(ctx, alice, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 50), aliceBal)

	minerBal, err := fake.GetBalance(ctx, "mining_reward", "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, ledgertypes.Amount(0), minerBal, "the synthetic miner-reward sender is never debited")
}

func TestEffectiveBalance_SubtractsPendingDebits(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance(alice, "CAD-COIN", amt(t, 100))

	pending := ledgertypes.NewTransaction(alice, bob, amt(t, 30), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	err := fake.WithTx(ctx, func(stx store.Tx) error {
		return stx.InsertPendingTransaction(store.PendingTransactionRecord{
			TxID: pending.ID, Sender: pending.Sender, Receiver: pending.Receiver,
			Amount: pending.Amount, Fee: pending.Fee, CoinType: pending.CoinType,
			TransactionType: string(pending.TransactionType),
		})
	})
	require.NoError(t, err)

	eff, err := EffectiveBalance(ctx, fake, alice, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 69), eff)
}
