package miner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache/cachetest"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/difficulty"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/mempool"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/stablecoin"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store/storetest"
)

func amt(t *testing.T, v float64) ledgertypes.Amount {
	t.Helper()
	a, err := ledgertypes.NewAmountFromFloat(v)
	require.NoError(t, err)
	return a
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestMiner(t *testing.T, fake *storetest.Fake) *Miner {
	t.Helper()
	pool := mempool.New(fake, amt(t, 0.01), 100)
	diff := &difficulty.Engine{
		BaseDifficulty: 1, MaxDifficulty: 10, DifficultyAdjustmentInterval: 10,
		HalvingInterval: 1000, TargetBlockTime: 10, BaseMiningReward: 50,
	}
	return New(fake, cachetest.New(), pool, diff, 10, 5*time.Second, testLogger())
}

func TestMine_GenesisBlockCreditsMinerWithFullReward(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	m := newTestMiner(t, fake)

	result, err := m.Mine(ctx, "miner-address-00000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Block.Index)
	assert.Equal(t, ledgertypes.GenesisPreviousHash, result.Block.PreviousHash)

	bal, err := fake.GetBalance(ctx, "miner-address-00000", "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 50), bal)
}

func TestMine_IncludesPendingTransactionsAndPaysFeesToMiner(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	fake.SetBalance("alice-address-000000", "CAD-COIN", amt(t, 100))
	m := newTestMiner(t, fake)

	tx := ledgertypes.NewTransaction("alice-address-000000", "bob-address-0000000", amt(t, 10), amt(t, 1), "CAD-COIN", ledgertypes.TransactionTransfer, nil)
	require.NoError(t, m.pool.Admit(ctx, tx, true))

	result, err := m.Mine(ctx, "miner-address-00000")
	require.NoError(t, err)

	minerBal, err := fake.GetBalance(ctx, "miner-address-00000", "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 51), minerBal, "block reward plus the transfer's 1-unit fee")

	bobBal, err := fake.GetBalance(ctx, "bob-address-0000000", "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 10), bobBal)

	count, err := fake.CountPendingTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "mined transactions are removed from the mempool")

	require.Len(t, result.Block.Transactions, 2)
}

func TestMine_TimesOutAtUnreachableDifficulty(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	m := newTestMiner(t, fake)
	m.diff.BaseDifficulty = 64
	m.diff.MaxDifficulty = 64
	m.miningTimeout = 10 * time.Millisecond

	_, err := m.Mine(ctx, "miner-address-00000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrTimeout)
}

func TestMine_IncrementsStablecoinSupplyOnlyAtCommit(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	m := newTestMiner(t, fake)

	reg := stablecoin.New(fake, amt(t, 0.01))
	require.NoError(t, reg.Create(ctx, "CAD-COIN", "CAD Coin", 1.0, "CAD", nil))
	require.NoError(t, reg.AuthorizeMinter(ctx, "CAD-COIN", "system-minter-00000", "system"))
	_, err := reg.Mint(ctx, "CAD-COIN", "system-minter-00000", "receiver-address-000", amt(t, 25))
	require.NoError(t, err)

	coinBeforeCommit, err := fake.GetStablecoin(ctx, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, ledgertypes.Amount(0), coinBeforeCommit.TotalSupply)

	_, err = m.Mine(ctx, "miner-address-00000")
	require.NoError(t, err)

	coinAfterCommit, err := fake.GetStablecoin(ctx, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, amt(t, 25), coinAfterCommit.TotalSupply, "supply increments only when the mint_stable tx lands in a mined block")
}
