// Package balance applies the per-transaction debit/credit effect table
// (spec.md §4.7) inside the atomic unit a block commit runs in. Grounded
// on daglabs-btcd/blockdag's UTXO-diff application pattern (apply effects
// from an ordered transaction list against a running state, one pass, no
// post-condition rollback), adapted here to a simple keyed-balance ledger
// rather than a UTXO set.
package balance

import (
	"context"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// ApplyBlock applies every transaction in txs against the balances table
// through tx, in order. There is no per-transaction post-condition check
// that the sender's balance stays non-negative — admission at the mempool
// gate is the sole defense (spec.md §4.7, §9).
func ApplyBlock(stx store.Tx, txs []*ledgertypes.Transaction) error {
	for _, t := range txs {
		if err := apply(stx, t); err != nil {
			return err
		}
	}
	return nil
}

func apply(stx store.Tx, t *ledgertypes.Transaction) error {
	switch t.TransactionType {
	case ledgertypes.TransactionTransfer:
		if err := stx.UpsertBalanceDelta(t.Sender, t.CoinType, -(t.Amount + t.Fee)); err != nil {
			return err
		}
		return stx.UpsertBalanceDelta(t.Receiver, t.CoinType, t.Amount)

	case ledgertypes.TransactionMiningReward, ledgertypes.TransactionMintStable:
		return stx.UpsertBalanceDelta(t.Receiver, t.CoinType, t.Amount)

	default:
		return nil
	}
}

// EffectiveBalance returns the committed balance minus the sender's own
// pending debits — the figure the mempool's admission gate checks against
// (spec.md §9, mitigation (a)).
func EffectiveBalance(ctx context.Context, s store.Store, address, coinType string) (ledgertypes.Amount, error) {
	committed, err := s.GetBalance(ctx, address, coinType)
	if err != nil {
		return 0, err
	}
	pending, err := s.SumPendingDebits(ctx, address, coinType)
	if err != nil {
		return 0, err
	}
	return committed - pending, nil
}
