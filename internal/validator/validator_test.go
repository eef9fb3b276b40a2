package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store/storetest"
)

func seedChain(t *testing.T, fake *storetest.Fake, n int) {
	t.Helper()
	ctx := context.Background()
	prevHash := ledgertypes.GenesisHash()
	for i := int64(0); i < int64(n); i++ {
		hash := prevHash + "-next"
		err := fake.WithTx(ctx, func(stx store.Tx) error {
			return stx.InsertBlock(store.BlockRecord{
				Index: i, Hash: hash, PreviousHash: prevHash, Miner: "alice",
			})
		})
		require.NoError(t, err)
		prevHash = hash
	}
}

func TestValidateTail_EmptyChainIsValid(t *testing.T) {
	fake := storetest.New()
	ok, reason, err := ValidateTail(context.Background(), fake, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "chain is empty", reason)
}

func TestValidateTail_AcceptsProperLinkage(t *testing.T) {
	fake := storetest.New()
	seedChain(t, fake, 5)

	ok, _, err := ValidateTail(context.Background(), fake, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateTail_DetectsBrokenLinkage(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	seedChain(t, fake, 5)

	err := fake.WithTx(ctx, func(stx store.Tx) error {
		return stx.InsertBlock(store.BlockRecord{
			Index: 3, Hash: "tampered-hash-3", PreviousHash: "not-the-real-parent-hash", Miner: "alice",
		})
	})
	require.NoError(t, err)

	ok, reason, err := ValidateTail(ctx, fake, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "previous_hash mismatch")
}

func TestValidateGenesisLinkage(t *testing.T) {
	ok, _ := ValidateGenesisLinkage(nil)
	assert.False(t, ok)

	genesis := ledgertypes.NewBlock(0, nil, ledgertypes.GenesisPreviousHash, "genesis", 1)
	ok, _ = ValidateGenesisLinkage(genesis)
	assert.True(t, ok)

	tampered := ledgertypes.NewBlock(0, nil, "wrong-sentinel", "genesis", 1)
	ok, reason := ValidateGenesisLinkage(tampered)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}
