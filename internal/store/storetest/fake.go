// Package storetest provides an in-memory store.Store used by the other
// internal packages' tests so each can exercise admission, mining, and
// query logic without a live Postgres instance. It is intentionally
// minimal: enough bookkeeping to make the interface contract observable,
// nothing resembling production persistence.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

var errAlreadyExists = errors.New("storetest: address already registered")

type balanceKey struct {
	address, coinType string
}

// Fake is an in-memory implementation of store.Store and store.Tx.
type Fake struct {
	mu sync.Mutex

	balances    map[balanceKey]ledgertypes.Amount
	pending     map[string]store.PendingTransactionRecord
	blocks      map[int64]store.BlockRecord
	txByBlock   map[int64][]store.TransactionRecord
	chainStats  []store.ChainStatsRecord
	miningAtts  []store.MiningAttemptRecord
	stablecoins map[string]store.StablecoinRecord
	minters     map[string]map[string]bool
	users       map[string]store.UserRecord
	tip         int64
	hasTip      bool
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		balances:    make(map[balanceKey]ledgertypes.Amount),
		pending:     make(map[string]store.PendingTransactionRecord),
		blocks:      make(map[int64]store.BlockRecord),
		txByBlock:   make(map[int64][]store.TransactionRecord),
		stablecoins: make(map[string]store.StablecoinRecord),
		minters:     make(map[string]map[string]bool),
		users:       make(map[string]store.UserRecord),
	}
}

// SetBalance seeds a starting balance for tests, bypassing admission.
func (f *Fake) SetBalance(address, coinType string, amount ledgertypes.Amount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balanceKey{address, coinType}] = amount
}

func (f *Fake) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(tx{f})
}

// tx implements store.Tx by operating directly on the Fake's maps. It is a
// distinct type from Fake because store.Store and store.Tx both declare
// GetBalance/GetTipBlock/GetStablecoin/IsAuthorizedMinter with different
// (ctx vs non-ctx) signatures, which a single type cannot implement at once.
type tx struct{ f *Fake }

func (f *Fake) GetTipBlock(ctx context.Context) (*store.BlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tipLocked()
}

func (f *Fake) tipLocked() (*store.BlockRecord, error) {
	if !f.hasTip {
		return nil, nil
	}
	b := f.blocks[f.tip]
	return &b, nil
}

func (f *Fake) GetBlockByIndex(ctx context.Context, index int64) (*store.BlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blocks[index]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *Fake) CountBlocks(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.blocks)), nil
}

func (f *Fake) RecentBlocks(ctx context.Context, n int) ([]store.BlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sortedBlocksLocked()
	if len(all) > n {
		all = all[len(all)-n:]
	}
	// descending, newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func (f *Fake) ListBlocksPaged(ctx context.Context, limit, offset int) ([]store.BlockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sortedBlocksLocked()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *Fake) sortedBlocksLocked() []store.BlockRecord {
	out := make([]store.BlockRecord, 0, len(f.blocks))
	for _, b := range f.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (f *Fake) TransactionsForBlocks(ctx context.Context, indices []int64) ([]store.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.TransactionRecord
	for _, idx := range indices {
		out = append(out, f.txByBlock[idx]...)
	}
	return out, nil
}

func (f *Fake) GetBalance(ctx context.Context, address, coinType string) (ledgertypes.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[balanceKey{address, coinType}], nil
}

func (f *Fake) GetBalances(ctx context.Context, address string) (map[string]ledgertypes.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]ledgertypes.Amount)
	for k, v := range f.balances {
		if k.address == address {
			out[k.coinType] = v
		}
	}
	return out, nil
}

func (f *Fake) PendingTransactionsByPriority(ctx context.Context, limit int) ([]store.PendingTransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.PendingTransactionRecord, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p)
	}
	now := time.Now()
	sort.Slice(out, func(i, j int) bool {
		return priority(out[i], now) > priority(out[j], now)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// priority mirrors internal/mempool.Priority (fee + age-in-hours) so the
// fake orders pending transactions the same way the real store does.
func priority(entry store.PendingTransactionRecord, now time.Time) float64 {
	ageHours := now.Sub(time.Unix(int64(entry.CreatedAt), 0)).Hours()
	return entry.Fee.ToFloat() + ageHours
}

func (f *Fake) CountPendingTransactions(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending), nil
}

func (f *Fake) SumPendingDebits(ctx context.Context, address, coinType string) (ledgertypes.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum ledgertypes.Amount
	for _, p := range f.pending {
		if p.Sender == address && p.CoinType == coinType {
			sum += p.Amount + p.Fee
		}
	}
	return sum, nil
}

func (f *Fake) GetStablecoin(ctx context.Context, symbol string) (*store.StablecoinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.stablecoins[symbol]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *Fake) ListStablecoins(ctx context.Context) (map[string]store.StablecoinRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]store.StablecoinRecord, len(f.stablecoins))
	for k, v := range f.stablecoins {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) IsAuthorizedMinter(ctx context.Context, symbol, minter string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if minter == "system" {
		return true, nil
	}
	return f.minters[symbol][minter], nil
}

func (f *Fake) ChainStatsWindow(ctx context.Context, n int) ([]store.ChainStatsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if len(f.chainStats) > n {
		start = len(f.chainStats) - n
	}
	// descending, newest first, like the Postgres store
	out := make([]store.ChainStatsRecord, 0, len(f.chainStats)-start)
	for i := len(f.chainStats) - 1; i >= start; i-- {
		out = append(out, f.chainStats[i])
	}
	return out, nil
}

func (f *Fake) MiningStatsWindow(ctx context.Context, sinceUnix float64) ([]store.MiningAttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.MiningAttemptRecord
	for _, a := range f.miningAtts {
		if a.StartTime >= sinceUnix {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) CreateUser(ctx context.Context, u store.UserRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[u.Address]; exists {
		return errAlreadyExists
	}
	f.users[u.Address] = u
	return nil
}

func (f *Fake) GetUser(ctx context.Context, address string) (*store.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[address]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *Fake) TouchUserActivity(ctx context.Context, address string) error {
	return nil
}

// Tx-side methods. These run while f.mu is already held by WithTx, so they
// touch the maps directly without locking again.

func (t tx) GetBalance(address, coinType string) (ledgertypes.Amount, error) {
	return t.f.balances[balanceKey{address, coinType}], nil
}

func (t tx) UpsertBalanceDelta(address, coinType string, delta ledgertypes.Amount) error {
	k := balanceKey{address, coinType}
	t.f.balances[k] += delta
	return nil
}

func (t tx) InsertPendingTransaction(row store.PendingTransactionRecord) error {
	t.f.pending[row.TxID] = row
	return nil
}

func (t tx) DeletePendingTransactions(ids []string) error {
	for _, id := range ids {
		delete(t.f.pending, id)
	}
	return nil
}

func (t tx) CountPendingTransactions() (int, error) {
	return len(t.f.pending), nil
}

func (t tx) GetTipBlock() (*store.BlockRecord, error) {
	return t.f.tipLocked()
}

func (t tx) InsertBlock(block store.BlockRecord) error {
	t.f.blocks[block.Index] = block
	if !t.f.hasTip || block.Index > t.f.tip {
		t.f.tip = block.Index
		t.f.hasTip = true
	}
	return nil
}

func (t tx) InsertTransactions(rows []store.TransactionRecord) error {
	for _, r := range rows {
		t.f.txByBlock[r.BlockIndex] = append(t.f.txByBlock[r.BlockIndex], r)
	}
	return nil
}

func (t tx) InsertChainStats(row store.ChainStatsRecord) error {
	t.f.chainStats = append(t.f.chainStats, row)
	return nil
}

func (t tx) InsertMiningAttempt(row store.MiningAttemptRecord) error {
	t.f.miningAtts = append(t.f.miningAtts, row)
	return nil
}

func (t tx) UpdateMiningAttempt(blockIndex int64, miner string, endTime float64, success bool, attempts uint64) error {
	for i := range t.f.miningAtts {
		a := &t.f.miningAtts[i]
		if a.BlockIndex == blockIndex && a.Miner == miner && a.EndTime == nil {
			a.EndTime = &endTime
			a.Success = success
			a.AttemptsCount = attempts
			return nil
		}
	}
	return nil
}

func (t tx) GetStablecoin(symbol string) (*store.StablecoinRecord, error) {
	c, ok := t.f.stablecoins[symbol]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (t tx) CreateStablecoin(row store.StablecoinRecord) error {
	t.f.stablecoins[row.Symbol] = row
	return nil
}

func (t tx) IncrementStablecoinSupply(symbol string, amount ledgertypes.Amount) error {
	c := t.f.stablecoins[symbol]
	c.TotalSupply += amount
	t.f.stablecoins[symbol] = c
	return nil
}

func (t tx) IsAuthorizedMinter(symbol, minter string) (bool, error) {
	if minter == "system" {
		return true, nil
	}
	return t.f.minters[symbol][minter], nil
}

func (t tx) AuthorizeMinter(symbol, minter, authorizer string) error {
	if t.f.minters[symbol] == nil {
		t.f.minters[symbol] = make(map[string]bool)
	}
	t.f.minters[symbol][minter] = true
	return nil
}

var _ store.Store = (*Fake)(nil)
var _ store.Tx = tx{}
