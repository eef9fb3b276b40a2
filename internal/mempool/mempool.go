// Package mempool implements the fee-prioritized pending-transaction pool
// (spec.md §4.3): an admission gate backed by the durable store, plus the
// priority ordering the Miner consumes when assembling a block. Grounded
// on daglabs-btcd/mining's txPriorityQueue (container/heap over a fee-based
// less-func) — the admission and scoring logic itself has no source-side
// analogue there, since btcd's mempool orders by fee-per-KB over a UTXO
// set rather than a balance ledger, so the gate below is written fresh in
// that package's idiom.
package mempool

import (
	"context"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// defaultFeeRate is the fraction of amount charged when a caller omits fee.
const defaultFeeRate = 0.001

// Pool enforces admission and exposes the priority-ordered view the Miner
// pulls from.
type Pool struct {
	store              store.Store
	minFee             ledgertypes.Amount
	maxPending         int
}

// New builds a Pool bound to minFee and maxPending — both sourced from
// config.Config (MinTransactionFee, MaxPendingTransactions).
func New(s store.Store, minFee ledgertypes.Amount, maxPending int) *Pool {
	return &Pool{store: s, minFee: minFee, maxPending: maxPending}
}

// DefaultFee computes max(MIN_TRANSACTION_FEE, amount*0.001), the fee
// applied when a submitted transaction omits one (spec.md §4.3).
func (p *Pool) DefaultFee(amount ledgertypes.Amount) ledgertypes.Amount {
	rateFee, err := ledgertypes.NewAmountFromFloat(amount.ToFloat() * defaultFeeRate)
	if err != nil || rateFee < p.minFee {
		return p.minFee
	}
	return rateFee
}

// Admit runs the five-point admission contract from spec.md §4.3 and, if
// it passes, inserts tx as a pending entry. coinExists reports whether
// tx.CoinType is registered (checked by the caller via the stablecoin
// registry so this package stays free of that dependency).
func (p *Pool) Admit(ctx context.Context, tx *ledgertypes.Transaction, coinExists bool) error {
	if ok, reason := tx.Validate(); !ok {
		return ledgerrors.Validation("invalid transaction: %s", reason)
	}
	if !coinExists {
		return ledgerrors.Validation("unknown coin type %q", tx.CoinType)
	}
	if tx.Fee < p.minFee {
		return ledgerrors.Validation("fee %s below minimum %s", tx.Fee, p.minFee)
	}

	count, err := p.store.CountPendingTransactions(ctx)
	if err != nil {
		return ledgerrors.Persistence("counting pending transactions: %v", err)
	}
	if count >= p.maxPending {
		return ledgerrors.Admission("mempool is full (%d pending)", p.maxPending)
	}

	// Effective-balance admission: committed balance minus the sender's own
	// already-pending debits, resolving spec.md §9's double-spend open
	// question via mitigation (a).
	committed, err := p.store.GetBalance(ctx, tx.Sender, tx.CoinType)
	if err != nil {
		return ledgerrors.Persistence("reading balance: %v", err)
	}
	pendingDebits, err := p.store.SumPendingDebits(ctx, tx.Sender, tx.CoinType)
	if err != nil {
		return ledgerrors.Persistence("reading pending debits: %v", err)
	}
	effective := committed - pendingDebits
	required := tx.Amount + tx.Fee
	if tx.TransactionType == ledgertypes.TransactionTransfer && effective < required {
		return ledgerrors.Validation(
			"insufficient balance: effective balance %s < required %s", effective, required,
		)
	}

	return p.store.WithTx(ctx, func(stx store.Tx) error {
		return stx.InsertPendingTransaction(store.PendingTransactionRecord{
			TxID:            tx.ID,
			Sender:          tx.Sender,
			Receiver:        tx.Receiver,
			Amount:          tx.Amount,
			Fee:             tx.Fee,
			CoinType:        tx.CoinType,
			TransactionType: string(tx.TransactionType),
			Metadata:        tx.Metadata,
			Timestamp:       tx.Timestamp,
			CreatedAt:       float64(time.Now().Unix()),
		})
	})
}

// Priority is the effective ordering score spec.md §4.3 defines:
// fee + (now-timestamp)/3600, fee dominating, age breaking near-ties.
func Priority(entry store.PendingTransactionRecord, now time.Time) float64 {
	ageHours := now.Sub(time.Unix(int64(entry.CreatedAt), 0)).Hours()
	return entry.Fee.ToFloat() + ageHours
}

// TopForBlock returns up to maxCount pending transactions in priority
// order (fee + age-in-hours, descending), the set the Miner selects from
// when assembling a block. The store already applies the Priority scoring
// this package defines; this layer exists as the seam the Miner depends on
// rather than store.Store directly.
func (p *Pool) TopForBlock(ctx context.Context, maxCount int) ([]store.PendingTransactionRecord, error) {
	entries, err := p.store.PendingTransactionsByPriority(ctx, maxCount)
	if err != nil {
		return nil, ledgerrors.Persistence("reading pending transactions: %v", err)
	}
	return entries, nil
}

// PendingList returns up to limit pending entries for the read-only
// GET /pending_transactions surface (spec.md §6).
func (p *Pool) PendingList(ctx context.Context, limit int) ([]store.PendingTransactionRecord, error) {
	return p.store.PendingTransactionsByPriority(ctx, limit)
}
