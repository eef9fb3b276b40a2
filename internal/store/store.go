// Package store defines the durable-store contract (spec.md §6): atomic,
// keyed persistence for blocks, transactions, balances, the mempool,
// stablecoins, authorized minters, chain statistics, and mining attempts.
// internal/store/postgres provides the concrete implementation; every other
// package in this module depends only on the interfaces here, the same
// seam the spec draws between the ledger engine and its durable store
// collaborator.
package store

import (
	"context"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
)

// BlockRecord is a persisted block header plus its observational fields.
type BlockRecord struct {
	Index            int64
	Hash             string
	PreviousHash     string
	Miner            string
	Nonce            uint64
	Difficulty       int
	Timestamp        float64
	MiningTime       float64
	BlockSize        int
	TotalFees        ledgertypes.Amount
	ValidationStatus string
}

// TransactionRecord is a persisted transaction attached to the block at
// BlockIndex. Pending entries are stored as PendingTransactionRecord instead.
type TransactionRecord struct {
	TxID             string
	BlockIndex       int64
	Sender           string
	Receiver         string
	Amount           ledgertypes.Amount
	Fee              ledgertypes.Amount
	CoinType         string
	TransactionType  string
	Metadata         map[string]interface{}
	Timestamp        float64
	ValidationStatus string
}

// PendingTransactionRecord is a mempool entry: transaction fields plus the
// insertion time (CreatedAt). No score is stored; the priority is computed
// at read time from Fee and CreatedAt.
type PendingTransactionRecord struct {
	TxID            string
	Sender          string
	Receiver        string
	Amount          ledgertypes.Amount
	Fee             ledgertypes.Amount
	CoinType        string
	TransactionType string
	Metadata        map[string]interface{}
	Timestamp       float64
	CreatedAt       float64
}

// BalanceRecord is a (address, coin_type) balance row.
type BalanceRecord struct {
	Address        string
	CoinType       string
	Balance        ledgertypes.Amount
	FrozenBalance  ledgertypes.Amount
}

// StablecoinRecord is a registry entry for CAD-COIN or a user-defined
// stablecoin.
type StablecoinRecord struct {
	Symbol           string
	Name             string
	CollateralRatio  float64
	BackedBy         string
	MaxSupply        *ledgertypes.Amount
	TotalSupply      ledgertypes.Amount
	CreationDate     float64
}

// ChainStatsRecord is one row of per-block chain statistics.
type ChainStatsRecord struct {
	BlockIndex        int64
	CurrentDifficulty int
	CurrentReward     ledgertypes.Amount
	AvgBlockTime      float64
	HashRate          float64
}

// MiningAttemptRecord is an audit row for one invocation of the miner.
type MiningAttemptRecord struct {
	BlockIndex    int64
	Miner         string
	StartTime     float64
	EndTime       *float64
	Success       bool
	AttemptsCount uint64
}

// UserRecord is a registered account.
type UserRecord struct {
	Address          string
	PasswordHash     string
	ReputationScore  int
}

// Store is the durable store contract (spec.md §6). All multi-statement
// mutations run through WithTx so they commit or roll back as a unit.
type Store interface {
	// WithTx runs fn inside a single serializable transaction. Any error
	// returned from fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Reads that do not require transactional isolation.
	GetTipBlock(ctx context.Context) (*BlockRecord, error)
	GetBlockByIndex(ctx context.Context, index int64) (*BlockRecord, error)
	CountBlocks(ctx context.Context) (int64, error)
	RecentBlocks(ctx context.Context, n int) ([]BlockRecord, error)
	ListBlocksPaged(ctx context.Context, limit, offset int) ([]BlockRecord, error)
	TransactionsForBlocks(ctx context.Context, indices []int64) ([]TransactionRecord, error)

	GetBalance(ctx context.Context, address, coinType string) (ledgertypes.Amount, error)
	GetBalances(ctx context.Context, address string) (map[string]ledgertypes.Amount, error)

	PendingTransactionsByPriority(ctx context.Context, limit int) ([]PendingTransactionRecord, error)
	CountPendingTransactions(ctx context.Context) (int, error)
	SumPendingDebits(ctx context.Context, address, coinType string) (ledgertypes.Amount, error)

	GetStablecoin(ctx context.Context, symbol string) (*StablecoinRecord, error)
	ListStablecoins(ctx context.Context) (map[string]StablecoinRecord, error)
	IsAuthorizedMinter(ctx context.Context, symbol, minter string) (bool, error)

	ChainStatsWindow(ctx context.Context, n int) ([]ChainStatsRecord, error)
	MiningStatsWindow(ctx context.Context, sinceUnix float64) ([]MiningAttemptRecord, error)

	CreateUser(ctx context.Context, u UserRecord) error
	GetUser(ctx context.Context, address string) (*UserRecord, error)
	TouchUserActivity(ctx context.Context, address string) error
}

// Tx is the set of mutating operations available inside a WithTx unit.
type Tx interface {
	GetBalance(address, coinType string) (ledgertypes.Amount, error)
	UpsertBalanceDelta(address, coinType string, delta ledgertypes.Amount) error

	InsertPendingTransaction(row PendingTransactionRecord) error
	DeletePendingTransactions(ids []string) error
	CountPendingTransactions() (int, error)

	GetTipBlock() (*BlockRecord, error)
	InsertBlock(block BlockRecord) error
	InsertTransactions(rows []TransactionRecord) error
	InsertChainStats(row ChainStatsRecord) error

	InsertMiningAttempt(row MiningAttemptRecord) error
	UpdateMiningAttempt(blockIndex int64, miner string, endTime float64, success bool, attempts uint64) error

	GetStablecoin(symbol string) (*StablecoinRecord, error)
	CreateStablecoin(row StablecoinRecord) error
	IncrementStablecoinSupply(symbol string, amount ledgertypes.Amount) error

	IsAuthorizedMinter(symbol, minter string) (bool, error)
	AuthorizeMinter(symbol, minter, authorizer string) error
}
