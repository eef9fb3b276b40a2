// Package validator implements the Chain Validator (spec.md §4.6): a
// depth-bounded integrity check over the tail of the persisted chain.
// Grounded on daglabs-btcd/blockdag's chain-tip verification pattern
// (walk back from the tip checking parent linkage), simplified here to a
// single linear chain rather than a block DAG.
package validator

import (
	"context"
	"fmt"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// ValidateTail checks the last depth blocks (index descending) for correct
// previous_hash linkage, fetching the preceding block when it falls
// outside the window. Genesis (index 0) is trusted unconditionally.
func ValidateTail(ctx context.Context, s store.Store, depth int) (bool, string, error) {
	blocks, err := s.RecentBlocks(ctx, depth)
	if err != nil {
		return false, "", ledgerrors.Persistence("reading recent blocks: %v", err)
	}
	if len(blocks) == 0 {
		return true, "chain is empty", nil
	}

	byIndex := make(map[int64]store.BlockRecord, len(blocks))
	for _, b := range blocks {
		byIndex[b.Index] = b
	}

	for _, b := range blocks {
		if b.Index == 0 {
			continue
		}
		prev, ok := byIndex[b.Index-1]
		if !ok {
			fetched, err := s.GetBlockByIndex(ctx, b.Index-1)
			if err != nil {
				return false, "", ledgerrors.Persistence("reading block %d: %v", b.Index-1, err)
			}
			if fetched == nil {
				return false, fmt.Sprintf("missing predecessor for block %d", b.Index), nil
			}
			prev = *fetched
		}
		if b.PreviousHash != prev.Hash {
			return false, fmt.Sprintf(
				"block %d previous_hash mismatch: expected %s, got %s", b.Index, prev.Hash, b.PreviousHash,
			), nil
		}
	}

	return true, "valid", nil
}

// ValidateGenesisLinkage confirms block 0 carries the sentinel
// previous_hash, the one case the depth-bounded walk above never checks
// directly since genesis is always trusted. It does not compare the block's
// own hash with GenesisHash.
func ValidateGenesisLinkage(genesis *ledgertypes.Block) (bool, string) {
	if genesis == nil {
		return false, "no genesis block"
	}
	if genesis.PreviousHash != ledgertypes.GenesisPreviousHash {
		return false, "genesis previous_hash is not the sentinel value"
	}
	return true, "valid"
}
