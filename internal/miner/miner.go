// Package miner orchestrates block assembly and proof-of-work (spec.md
// §4.5): pulling priority transactions, running PoW to timeout, and
// atomically committing the result. Grounded on daglabs-btcd/mining's
// BlockTemplate assembly pipeline (select transactions, build template,
// hand to a solver) adapted from a UTXO/DAG model to this ledger's
// balance-table model.
package miner

import (
	"context"
	"log/slog"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/balance"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/difficulty"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/mempool"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

const cadCoinSymbol = "CAD-COIN"

// Miner composes the durable store, hot cache, difficulty engine, and
// mempool into the mining procedure from spec.md §4.5.
type Miner struct {
	store         store.Store
	cache         cache.Cache
	pool          *mempool.Pool
	diff          *difficulty.Engine
	maxBlockSize  int
	miningTimeout time.Duration
	log           *slog.Logger
}

// New builds a Miner. maxBlockSize and miningTimeout are sourced from
// config.Config (MaxBlockSize, MiningTimeout).
func New(s store.Store, c cache.Cache, pool *mempool.Pool, diff *difficulty.Engine, maxBlockSize int, miningTimeout time.Duration, log *slog.Logger) *Miner {
	return &Miner{store: s, cache: c, pool: pool, diff: diff, maxBlockSize: maxBlockSize, miningTimeout: miningTimeout, log: log}
}

// Result describes a successfully mined block.
type Result struct {
	Block *ledgertypes.Block
}

// Mine runs the full procedure: select transactions, build the block,
// search for a valid nonce, then atomically persist everything. Returns
// ledgerrors.Timeout if PoW does not find a solution within the
// configured timeout; the mining-attempt row is still recorded as failed.
func (m *Miner) Mine(ctx context.Context, minerAddress string) (*Result, error) {
	tip, err := m.store.GetTipBlock(ctx)
	if err != nil {
		return nil, ledgerrors.Persistence("reading tip block: %v", err)
	}

	var index int64
	var previousHash string
	if tip == nil {
		index = 0
		previousHash = ledgertypes.GenesisPreviousHash
	} else {
		index = tip.Index + 1
		previousHash = tip.Hash
	}

	window, err := m.store.ChainStatsWindow(ctx, 64)
	if err != nil {
		return nil, ledgerrors.Persistence("reading chain stats window: %v", err)
	}
	timestamps := make([]float64, 0, len(window))
	for _, w := range window {
		b, err := m.store.GetBlockByIndex(ctx, w.BlockIndex)
		if err != nil || b == nil {
			continue
		}
		timestamps = append(timestamps, b.Timestamp)
	}
	d := m.diff.NextDifficulty(window, timestamps)
	reward := m.diff.Reward(index)

	startTime := float64(time.Now().Unix())
	if err := m.store.WithTx(ctx, func(stx store.Tx) error {
		return stx.InsertMiningAttempt(store.MiningAttemptRecord{
			BlockIndex: index,
			Miner:      minerAddress,
			StartTime:  startTime,
		})
	}); err != nil {
		return nil, ledgerrors.Persistence("recording mining attempt: %v", err)
	}

	selected, err := m.pool.TopForBlock(ctx, m.maxBlockSize-1)
	if err != nil {
		return nil, err
	}

	var fees ledgertypes.Amount
	txs := make([]*ledgertypes.Transaction, 0, len(selected)+1)
	ids := make([]string, 0, len(selected))
	for _, e := range selected {
		fees += e.Fee
		txs = append(txs, &ledgertypes.Transaction{
			ID:              e.TxID,
			Sender:          e.Sender,
			Receiver:        e.Receiver,
			Amount:          e.Amount,
			Fee:             e.Fee,
			CoinType:        e.CoinType,
			TransactionType: ledgertypes.TransactionType(e.TransactionType),
			Metadata:        e.Metadata,
			Timestamp:       e.Timestamp,
		})
		ids = append(ids, e.TxID)
	}

	rewardTx := ledgertypes.NewTransaction(
		"mining_reward", minerAddress, reward+fees, 0, cadCoinSymbol,
		ledgertypes.TransactionMiningReward, nil,
	)
	txs = append(txs, rewardTx)

	block := ledgertypes.NewBlock(index, txs, previousHash, minerAddress, d)

	solved := block.Mine(m.miningTimeout)
	if !solved {
		endTime := float64(time.Now().Unix())
		_ = m.store.WithTx(ctx, func(stx store.Tx) error {
			return stx.UpdateMiningAttempt(index, minerAddress, endTime, false, block.Nonce)
		})
		return nil, ledgerrors.Timeout("mining timed out after %s without finding a valid nonce", m.miningTimeout)
	}

	if ok, reason := block.Validate(previousHash); !ok {
		endTime := float64(time.Now().Unix())
		_ = m.store.WithTx(ctx, func(stx store.Tx) error {
			return stx.UpdateMiningAttempt(index, minerAddress, endTime, false, block.Nonce)
		})
		return nil, ledgerrors.Validation("mined block failed validation: %s", reason)
	}

	err = m.store.WithTx(ctx, func(stx store.Tx) error {
		if err := stx.InsertBlock(store.BlockRecord{
			Index:            block.Index,
			Hash:             block.Hash,
			PreviousHash:     block.PreviousHash,
			Miner:            block.Miner,
			Nonce:            block.Nonce,
			Difficulty:       block.Difficulty,
			Timestamp:        block.Timestamp,
			MiningTime:       block.MiningTime,
			BlockSize:        block.BlockSize,
			TotalFees:        block.TotalFees,
			ValidationStatus: "valid",
		}); err != nil {
			return err
		}

		records := make([]store.TransactionRecord, len(txs))
		for i, t := range txs {
			records[i] = store.TransactionRecord{
				TxID:             t.ID,
				BlockIndex:       block.Index,
				Sender:           t.Sender,
				Receiver:         t.Receiver,
				Amount:           t.Amount,
				Fee:              t.Fee,
				CoinType:         t.CoinType,
				TransactionType:  string(t.TransactionType),
				Metadata:         t.Metadata,
				Timestamp:        t.Timestamp,
				ValidationStatus: "valid",
			}
		}
		if err := stx.InsertTransactions(records); err != nil {
			return err
		}

		if err := balance.ApplyBlock(stx, txs); err != nil {
			return err
		}

		// Deferred mint-supply increment (spec.md §9): applied here, at
		// commit time, rather than when the mint was enqueued.
		for _, t := range txs {
			if t.TransactionType == ledgertypes.TransactionMintStable {
				if err := stx.IncrementStablecoinSupply(t.CoinType, t.Amount); err != nil {
					return err
				}
			}
		}

		if err := stx.DeletePendingTransactions(ids); err != nil {
			return err
		}

		var avgBlockTime float64
		if len(timestamps) > 1 {
			avgBlockTime = (timestamps[0] - timestamps[len(timestamps)-1]) / float64(len(timestamps)-1)
		}
		if err := stx.InsertChainStats(store.ChainStatsRecord{
			BlockIndex:        block.Index,
			CurrentDifficulty: block.Difficulty,
			CurrentReward:     reward,
			AvgBlockTime:      avgBlockTime,
			HashRate:          float64(block.Nonce) / maxFloat(block.MiningTime, 0.001),
		}); err != nil {
			return err
		}

		endTime := float64(time.Now().Unix())
		return stx.UpdateMiningAttempt(index, minerAddress, endTime, true, block.Nonce)
	})
	if err != nil {
		return nil, ledgerrors.Persistence("committing mined block: %v", err)
	}

	m.cache.InvalidatePattern(ctx, "latest_block*")
	m.cache.InvalidatePattern(ctx, "chain_info*")
	m.cache.InvalidatePattern(ctx, "balance_"+minerAddress+"*")

	m.log.Info("block mined", "index", block.Index, "difficulty", block.Difficulty, "nonce", block.Nonce, "miner", minerAddress)

	return &Result{Block: block}, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
