package postgres

import "encoding/json"

// gorm row types. Amounts are persisted as int64 base units (1e-8 CAD-COIN)
// rather than float, avoiding the accumulation error the original Python
// schema's DECIMAL(20,8) columns were introduced to paper over.

type userRow struct {
	ID              int64  `gorm:"primary_key"`
	Address         string `gorm:"unique_index;size:255"`
	PasswordHash    string
	ReputationScore int
	CreatedAt       float64
	LastActivity    float64
}

func (userRow) TableName() string { return "users" }

type blockRow struct {
	ID               int64  `gorm:"primary_key"`
	Index            int64  `gorm:"unique_index"`
	Hash             string `gorm:"unique_index;size:64"`
	PreviousHash     string `gorm:"size:64"`
	Miner            string `gorm:"size:255"`
	Nonce            int64
	Difficulty       int
	Timestamp        float64
	MiningTime       float64
	BlockSize        int
	TotalFees        int64
	ValidationStatus string `gorm:"size:20"`
}

func (blockRow) TableName() string { return "blocks" }

type transactionRow struct {
	ID               int64  `gorm:"primary_key"`
	TxID             string `gorm:"unique_index;size:36"`
	BlockIndex       int64  `gorm:"index"`
	Sender           string `gorm:"size:255;index"`
	Receiver         string `gorm:"size:255;index"`
	Amount           int64
	Fee              int64
	CoinType         string `gorm:"size:50"`
	TransactionType  string `gorm:"size:50"`
	Metadata         string `gorm:"type:jsonb"`
	Timestamp        float64
	ValidationStatus string `gorm:"size:20"`
}

func (transactionRow) TableName() string { return "transactions" }

func (r transactionRow) metadataMap() map[string]interface{} {
	out := map[string]interface{}{}
	if r.Metadata == "" {
		return out
	}
	_ = json.Unmarshal([]byte(r.Metadata), &out)
	return out
}

type pendingTransactionRow struct {
	ID              int64  `gorm:"primary_key"`
	TxID            string `gorm:"unique_index;size:36"`
	Sender          string `gorm:"size:255"`
	Receiver        string `gorm:"size:255"`
	Amount          int64
	Fee             int64
	CoinType        string `gorm:"size:50"`
	TransactionType string `gorm:"size:50"`
	Metadata        string `gorm:"type:jsonb"`
	Timestamp       float64
	CreatedAt       float64
}

func (pendingTransactionRow) TableName() string { return "pending_transactions" }

type stableCoinRow struct {
	ID              int64  `gorm:"primary_key"`
	Symbol          string `gorm:"unique_index;size:20"`
	Name            string `gorm:"size:100"`
	CollateralRatio float64
	BackedBy        string `gorm:"size:50"`
	MaxSupply       *int64
	TotalSupply     int64
	CreationDate    float64
}

func (stableCoinRow) TableName() string { return "stable_coins" }

type balanceRow struct {
	ID            int64  `gorm:"primary_key"`
	Address       string `gorm:"size:255;index"`
	CoinType      string `gorm:"size:50"`
	Balance       int64
	FrozenBalance int64
}

func (balanceRow) TableName() string { return "balances" }

type authorizedMinterRow struct {
	ID           int64  `gorm:"primary_key"`
	CoinSymbol   string `gorm:"size:20"`
	MinterAddress string `gorm:"size:255"`
	Authorizer   string `gorm:"size:255"`
}

func (authorizedMinterRow) TableName() string { return "authorized_minters" }

type chainStatsRow struct {
	ID                int64 `gorm:"primary_key"`
	BlockIndex        int64 `gorm:"unique_index"`
	CurrentDifficulty int
	CurrentReward     int64
	AvgBlockTime      float64
	HashRate          float64
}

func (chainStatsRow) TableName() string { return "chain_stats" }

type miningAttemptRow struct {
	ID            int64 `gorm:"primary_key"`
	BlockIndex    int64 `gorm:"index"`
	Miner         string `gorm:"size:255"`
	StartTime     float64
	EndTime       *float64
	Success       bool
	AttemptsCount int64
}

func (miningAttemptRow) TableName() string { return "mining_attempts" }
