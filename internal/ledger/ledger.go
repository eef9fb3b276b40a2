// Package ledger composes the durable store, hot cache, and domain
// engines into the Query Surface (spec.md §4.9) and process-level
// bootstrap (EnsureGenesis). Grounded on apiserver/server/routes.go's
// "service struct wrapping collaborators, one method per read" shape.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/balance"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/difficulty"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/mempool"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/miner"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/stablecoin"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/validator"
)

const cadCoinSymbol = "CAD-COIN"

const (
	cacheTTLChainInfo    = 60 * time.Second
	cacheTTLBalance      = 60 * time.Second
	cacheTTLLatestBlock  = 60 * time.Second
	cacheTTLMiningStats  = 300 * time.Second
)

// Ledger is the facade every HTTP handler depends on.
type Ledger struct {
	Store      store.Store
	Cache      cache.Cache
	Pool       *mempool.Pool
	Miner      *miner.Miner
	Stable     *stablecoin.Registry
	Difficulty *difficulty.Engine

	baseDifficulty       int
	baseMiningReward     float64
	maxPendingTx         int
	minTxFee             ledgertypes.Amount
	maxBlockSize         int
	blockValidationDepth int

	log *slog.Logger
}

// Deps bundles the constructor arguments, one field per collaborator or
// config value the Ledger needs.
type Deps struct {
	Store                store.Store
	Cache                cache.Cache
	Pool                 *mempool.Pool
	Miner                *miner.Miner
	Stable               *stablecoin.Registry
	Difficulty           *difficulty.Engine
	BaseDifficulty       int
	BaseMiningReward     float64
	MaxPendingTx         int
	MinTxFee             ledgertypes.Amount
	MaxBlockSize         int
	BlockValidationDepth int
	Log                  *slog.Logger
}

// New builds a Ledger from its collaborators.
func New(d Deps) *Ledger {
	return &Ledger{
		Store: d.Store, Cache: d.Cache, Pool: d.Pool, Miner: d.Miner,
		Stable: d.Stable, Difficulty: d.Difficulty,
		baseDifficulty: d.BaseDifficulty, baseMiningReward: d.BaseMiningReward,
		maxPendingTx: d.MaxPendingTx, minTxFee: d.MinTxFee,
		maxBlockSize: d.MaxBlockSize, blockValidationDepth: d.BlockValidationDepth,
		log: d.Log,
	}
}

// EnsureGenesis creates the genesis block and its chain-stats row if the
// chain is empty (spec.md §6 "Genesis block"). Runtime-created, rather
// than schema-seeded, so it reflects the process's configured
// BASE_DIFFICULTY and BASE_MINING_REWARD.
func (l *Ledger) EnsureGenesis(ctx context.Context) error {
	tip, err := l.Store.GetTipBlock(ctx)
	if err != nil {
		return ledgerrors.Persistence("reading tip block: %v", err)
	}
	if tip != nil {
		return nil
	}

	genesisHash := ledgertypes.GenesisHash()
	return l.Store.WithTx(ctx, func(stx store.Tx) error {
		if err := stx.InsertBlock(store.BlockRecord{
			Index:            0,
			Hash:             genesisHash,
			PreviousHash:     ledgertypes.GenesisPreviousHash,
			Miner:            "genesis",
			Nonce:            0,
			Difficulty:       l.baseDifficulty,
			Timestamp:        float64(time.Now().Unix()),
			ValidationStatus: "validated",
		}); err != nil {
			return err
		}
		rewardAmt, err := ledgertypes.NewAmountFromFloat(l.baseMiningReward)
		if err != nil {
			return err
		}
		return stx.InsertChainStats(store.ChainStatsRecord{
			BlockIndex:        0,
			CurrentDifficulty: l.baseDifficulty,
			CurrentReward:     rewardAmt,
		})
	})
}

// ChainInfo is the wire shape of chain_info() (spec.md §4.9).
type ChainInfo struct {
	Length          int64                         `json:"length"`
	Difficulty      int                            `json:"difficulty"`
	NextReward      float64                        `json:"next_reward"`
	MempoolSize     int                            `json:"mempool_size"`
	MaxBlockSize    int                            `json:"max_block_size"`
	MaxPendingTx    int                            `json:"max_pending_transactions"`
	HashRate        float64                        `json:"hash_rate"`
	LatestBlockHash string                         `json:"latest_block_hash"`
	Stablecoins     map[string]store.StablecoinRecord `json:"stable_coins"`
}

// ChainInfo returns the chain summary, cache-backed with a 60s TTL.
func (l *Ledger) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	const cacheKey = "chain_info"
	if raw, ok := l.Cache.Get(ctx, cacheKey); ok {
		var info ChainInfo
		if err := json.Unmarshal(raw, &info); err == nil {
			return &info, nil
		}
	}

	length, err := l.Store.CountBlocks(ctx)
	if err != nil {
		return nil, ledgerrors.Persistence("counting blocks: %v", err)
	}
	tip, err := l.Store.GetTipBlock(ctx)
	if err != nil {
		return nil, ledgerrors.Persistence("reading tip block: %v", err)
	}
	mempoolSize, err := l.Store.CountPendingTransactions(ctx)
	if err != nil {
		return nil, ledgerrors.Persistence("counting pending transactions: %v", err)
	}
	coins, err := l.Store.ListStablecoins(ctx)
	if err != nil {
		return nil, ledgerrors.Persistence("listing stablecoins: %v", err)
	}

	var nextIndex int64
	var currentDifficulty = l.baseDifficulty
	var latestHash string
	if tip != nil {
		nextIndex = tip.Index + 1
		currentDifficulty = tip.Difficulty
		latestHash = tip.Hash
	}

	hashRate, err := l.estimateHashRate(ctx)
	if err != nil {
		return nil, err
	}

	info := &ChainInfo{
		Length:          length,
		Difficulty:      currentDifficulty,
		NextReward:      l.Difficulty.Reward(nextIndex).ToFloat(),
		MempoolSize:     mempoolSize,
		MaxBlockSize:    l.maxBlockSize,
		MaxPendingTx:    l.maxPendingTx,
		HashRate:        hashRate,
		LatestBlockHash: latestHash,
		Stablecoins:     coins,
	}

	if raw, err := json.Marshal(info); err == nil {
		l.Cache.Set(ctx, cacheKey, raw, cacheTTLChainInfo)
	}
	return info, nil
}

// estimateHashRate averages 2^difficulty / mining_time over the last 10
// non-genesis blocks (spec.md §4.9).
func (l *Ledger) estimateHashRate(ctx context.Context) (float64, error) {
	recent, err := l.Store.RecentBlocks(ctx, 11)
	if err != nil {
		return 0, ledgerrors.Persistence("reading recent blocks: %v", err)
	}
	var sum float64
	var count int
	for _, b := range recent {
		if b.Index == 0 || b.MiningTime <= 0 {
			continue
		}
		sum += math.Pow(2, float64(b.Difficulty)) / b.MiningTime
		count++
		if count == 10 {
			break
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// Balance returns a single (address, coin) balance, cache-backed.
func (l *Ledger) Balance(ctx context.Context, address, coinType string) (ledgertypes.Amount, error) {
	cacheKey := "balance_" + address + "_" + coinType
	if raw, ok := l.Cache.Get(ctx, cacheKey); ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			amt, err := ledgertypes.NewAmountFromFloat(v)
			if err == nil {
				return amt, nil
			}
		}
	}
	bal, err := l.Store.GetBalance(ctx, address, coinType)
	if err != nil {
		return 0, ledgerrors.Persistence("reading balance: %v", err)
	}
	if raw, err := json.Marshal(bal.ToFloat()); err == nil {
		l.Cache.Set(ctx, cacheKey, raw, cacheTTLBalance)
	}
	return bal, nil
}

// Balances returns every coin balance held by address, cache-backed.
func (l *Ledger) Balances(ctx context.Context, address string) (map[string]ledgertypes.Amount, error) {
	cacheKey := "balance_" + address
	if raw, ok := l.Cache.Get(ctx, cacheKey); ok {
		var v map[string]float64
		if err := json.Unmarshal(raw, &v); err == nil {
			out := make(map[string]ledgertypes.Amount, len(v))
			for k, f := range v {
				amt, err := ledgertypes.NewAmountFromFloat(f)
				if err == nil {
					out[k] = amt
				}
			}
			return out, nil
		}
	}
	balances, err := l.Store.GetBalances(ctx, address)
	if err != nil {
		return nil, ledgerrors.Persistence("reading balances: %v", err)
	}
	asFloats := make(map[string]float64, len(balances))
	for k, v := range balances {
		asFloats[k] = v.ToFloat()
	}
	if raw, err := json.Marshal(asFloats); err == nil {
		l.Cache.Set(ctx, cacheKey, raw, cacheTTLBalance)
	}
	return balances, nil
}

// BlockView is a paginated block joined with its transactions, the shape
// GET /chain returns.
type BlockView struct {
	store.BlockRecord
	Transactions []store.TransactionRecord `json:"transactions"`
}

// Blocks returns blocks tip-first, paged, each joined with its
// transactions. limit is clamped to [1, 200] per spec.md §4.9.
func (l *Ledger) Blocks(ctx context.Context, limit, offset int) ([]BlockView, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := l.Store.ListBlocksPaged(ctx, limit, offset)
	if err != nil {
		return nil, ledgerrors.Persistence("listing blocks: %v", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	indices := make([]int64, len(rows))
	for i, r := range rows {
		indices[i] = r.Index
	}
	txs, err := l.Store.TransactionsForBlocks(ctx, indices)
	if err != nil {
		return nil, ledgerrors.Persistence("reading transactions for blocks: %v", err)
	}
	byBlock := make(map[int64][]store.TransactionRecord, len(rows))
	for _, t := range txs {
		byBlock[t.BlockIndex] = append(byBlock[t.BlockIndex], t)
	}

	views := make([]BlockView, len(rows))
	for i, r := range rows {
		views[i] = BlockView{BlockRecord: r, Transactions: byBlock[r.Index]}
	}
	return views, nil
}

// MiningStats is the 24-hour summary GET /mining_stats returns.
type MiningStats struct {
	TopMiners         []MinerStat `json:"top_miners"`
	AvgDifficulty     float64     `json:"avg_difficulty"`
	AvgReward         float64     `json:"avg_reward"`
	AvgHashRate       float64     `json:"avg_hash_rate"`
}

// MinerStat is one miner's standing in the 24-hour leaderboard.
type MinerStat struct {
	Miner          string  `json:"miner"`
	SuccessCount   int     `json:"success_count"`
	AvgSuccessTime float64 `json:"avg_success_time_seconds"`
}

// MiningStats returns the 24-hour top-miners leaderboard plus windowed
// averages of difficulty, reward, and hash rate (spec.md §4.9).
func (l *Ledger) MiningStats(ctx context.Context) (*MiningStats, error) {
	const cacheKey = "mining_stats"
	if raw, ok := l.Cache.Get(ctx, cacheKey); ok {
		var stats MiningStats
		if err := json.Unmarshal(raw, &stats); err == nil {
			return &stats, nil
		}
	}

	since := float64(time.Now().Add(-24 * time.Hour).Unix())
	attempts, err := l.Store.MiningStatsWindow(ctx, since)
	if err != nil {
		return nil, ledgerrors.Persistence("reading mining attempts: %v", err)
	}

	type agg struct {
		successCount int
		totalTime    float64
	}
	byMiner := make(map[string]*agg)
	for _, a := range attempts {
		if !a.Success || a.EndTime == nil {
			continue
		}
		entry, ok := byMiner[a.Miner]
		if !ok {
			entry = &agg{}
			byMiner[a.Miner] = entry
		}
		entry.successCount++
		entry.totalTime += *a.EndTime - a.StartTime
	}

	miners := make([]MinerStat, 0, len(byMiner))
	for miner, entry := range byMiner {
		avg := 0.0
		if entry.successCount > 0 {
			avg = entry.totalTime / float64(entry.successCount)
		}
		miners = append(miners, MinerStat{Miner: miner, SuccessCount: entry.successCount, AvgSuccessTime: avg})
	}

	window, err := l.Store.ChainStatsWindow(ctx, 50)
	if err != nil {
		return nil, ledgerrors.Persistence("reading chain stats window: %v", err)
	}
	var avgDifficulty, avgReward, avgHashRate float64
	if len(window) > 0 {
		var sumD float64
		var sumR ledgertypes.Amount
		var sumH float64
		for _, w := range window {
			sumD += float64(w.CurrentDifficulty)
			sumR += w.CurrentReward
			sumH += w.HashRate
		}
		n := float64(len(window))
		avgDifficulty = sumD / n
		avgReward = sumR.ToFloat() / n
		avgHashRate = sumH / n
	}

	stats := &MiningStats{
		TopMiners:     miners,
		AvgDifficulty: avgDifficulty,
		AvgReward:     avgReward,
		AvgHashRate:   avgHashRate,
	}
	if raw, err := json.Marshal(stats); err == nil {
		l.Cache.Set(ctx, cacheKey, raw, cacheTTLMiningStats)
	}
	return stats, nil
}

// ValidateChain runs the Chain Validator over the last depth blocks.
func (l *Ledger) ValidateChain(ctx context.Context, depth int) (bool, string, error) {
	if depth <= 0 {
		depth = l.blockValidationDepth
	}
	return validator.ValidateTail(ctx, l.Store, depth)
}

// SubmitTransaction admits a transfer into the mempool, attaching a
// default fee when the caller omitted one.
func (l *Ledger) SubmitTransaction(ctx context.Context, sender, receiver string, amount ledgertypes.Amount, fee *ledgertypes.Amount, coinType string) (*ledgertypes.Transaction, error) {
	coin, err := l.Store.GetStablecoin(ctx, coinType)
	if err != nil {
		return nil, ledgerrors.Persistence("reading stablecoin: %v", err)
	}

	actualFee := l.Pool.DefaultFee(amount)
	if fee != nil {
		actualFee = *fee
	}

	txn := ledgertypes.NewTransaction(sender, receiver, amount, actualFee, coinType, ledgertypes.TransactionTransfer, nil)
	if err := l.Pool.Admit(ctx, txn, coin != nil); err != nil {
		return nil, err
	}
	return txn, nil
}

// Mine runs the Miner for minerAddress and invalidates the relevant cache
// patterns on success (handled inside miner.Miner.Mine already).
func (l *Ledger) Mine(ctx context.Context, minerAddress string) (*miner.Result, error) {
	if len(minerAddress) < ledgertypes.MinAddressLength {
		return nil, ledgerrors.Validation("invalid miner address")
	}
	return l.Miner.Mine(ctx, minerAddress)
}
