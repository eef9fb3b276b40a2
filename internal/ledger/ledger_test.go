package ledger

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
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/miner"
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

func newTestLedger(t *testing.T, fake *storetest.Fake) *Ledger {
	t.Helper()
	minFee := amt(t, 0.01)
	pool := mempool.New(fake, minFee, 100)
	stable := stablecoin.New(fake, minFee)
	diff := &difficulty.Engine{
		BaseDifficulty: 1, MaxDifficulty: 10, DifficultyAdjustmentInterval: 10,
		HalvingInterval: 1000, TargetBlockTime: 10, BaseMiningReward: 50,
	}
	blockMiner := miner.New(fake, cachetest.New(), pool, diff, 10, 5*time.Second, testLogger())
	return New(Deps{
		Store: fake, Cache: cachetest.New(), Pool: pool, Miner: blockMiner, Stable: stable, Difficulty: diff,
		BaseDifficulty: 1, BaseMiningReward: 50, MaxPendingTx: 100, MinTxFee: minFee,
		MaxBlockSize: 10, BlockValidationDepth: 10, Log: testLogger(),
	})
}

func TestEnsureGenesis_CreatesGenesisOnlyOnce(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)

	require.NoError(t, l.EnsureGenesis(ctx))
	tip, err := fake.GetTipBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, int64(0), tip.Index)
	assert.Equal(t, ledgertypes.GenesisHash(), tip.Hash)

	require.NoError(t, l.EnsureGenesis(ctx))
	count, err := fake.CountBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "a second EnsureGenesis call must not create another block")
}

func TestChainInfo_ReflectsTipAndMempool(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)
	require.NoError(t, l.EnsureGenesis(ctx))

	info, err := l.ChainInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Length)
	assert.Equal(t, ledgertypes.GenesisHash(), info.LatestBlockHash)
	assert.Equal(t, 0, info.MempoolSize)
}

func TestSubmitTransaction_RejectsUnknownCoin(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)
	fake.SetBalance("alice-address-000000", "CAD-COIN", amt(t, 100))

	_, err := l.SubmitTransaction(ctx, "alice-address-000000", "bob-address-0000000", amt(t, 10), nil, "CAD-COIN")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrValidation)
}

func TestSubmitTransaction_AppliesDefaultFeeWhenOmitted(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)
	require.NoError(t, l.Stable.Create(ctx, "CAD-COIN", "CAD Coin", 1.0, "CAD", nil))
	fake.SetBalance("alice-address-000000", "CAD-COIN", amt(t, 100))

	txn, err := l.SubmitTransaction(ctx, "alice-address-000000", "bob-address-0000000", amt(t, 10), nil, "CAD-COIN")
	require.NoError(t, err)
	assert.Equal(t, l.Pool.DefaultFee(amt(t, 10)), txn.Fee)
}

func TestMine_RejectsShortMinerAddress(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)

	_, err := l.Mine(ctx, "ab")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgerrors.ErrValidation)
}

func TestBlocks_ClampsLimitAndJoinsTransactions(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)
	require.NoError(t, l.EnsureGenesis(ctx))
	_, err := l.Mine(ctx, "miner-address-00000")
	require.NoError(t, err)

	views, err := l.Blocks(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, views, 1, "a limit of 0 is clamped to 1")
	assert.Equal(t, int64(1), views[0].Index, "blocks are returned tip-first")
	assert.NotEmpty(t, views[0].Transactions, "the mined block carries its mining_reward transaction")
}

func TestValidateChain_DefaultsDepthFromConfig(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	l := newTestLedger(t, fake)
	require.NoError(t, l.EnsureGenesis(ctx))

	ok, _, err := l.ValidateChain(ctx, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
