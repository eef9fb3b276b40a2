package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// WithTx opens a gorm transaction, runs fn, and commits or rolls back based
// on fn's return value — the atomic unit every mutating ledger operation in
// spec.md §5 requires.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	gtx := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if gtx.Error != nil {
		return errors.Wrap(gtx.Error, "beginning transaction")
	}

	txw := &tx{db: gtx}
	if err := fn(txw); err != nil {
		if rbErr := gtx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}
		return err
	}
	if err := gtx.Commit().Error; err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

type tx struct {
	db *gorm.DB
}

func (t *tx) GetBalance(address, coinType string) (ledgertypes.Amount, error) {
	var row balanceRow
	err := t.db.Where(&balanceRow{Address: address, CoinType: coinType}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading balance")
	}
	return ledgertypes.Amount(row.Balance), nil
}

// UpsertBalanceDelta applies delta to the (address, coin_type) balance,
// creating the row at 0 first if absent — matching the original's
// ON CONFLICT DO UPDATE upsert pattern from update_balances_enhanced.
func (t *tx) UpsertBalanceDelta(address, coinType string, delta ledgertypes.Amount) error {
	result := t.db.Exec(
		`INSERT INTO balances (address, coin_type, balance) VALUES (?, ?, ?)
		 ON CONFLICT (address, coin_type) DO UPDATE SET balance = balances.balance + ?`,
		address, coinType, int64(delta), int64(delta),
	)
	return errors.Wrap(result.Error, "applying balance delta")
}

func (t *tx) InsertPendingTransaction(row store.PendingTransactionRecord) error {
	metaJSON, err := json.Marshal(row.Metadata)
	if err != nil {
		return errors.Wrap(err, "encoding metadata")
	}
	pr := pendingTransactionRow{
		TxID:            row.TxID,
		Sender:          row.Sender,
		Receiver:        row.Receiver,
		Amount:          int64(row.Amount),
		Fee:             int64(row.Fee),
		CoinType:        row.CoinType,
		TransactionType: row.TransactionType,
		Metadata:        string(metaJSON),
		Timestamp:       row.Timestamp,
		CreatedAt:       row.CreatedAt,
	}
	return errors.Wrap(t.db.Create(&pr).Error, "inserting pending transaction")
}

func (t *tx) DeletePendingTransactions(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return errors.Wrap(
		t.db.Where("tx_id in (?)", ids).Delete(&pendingTransactionRow{}).Error,
		"deleting processed pending transactions",
	)
}

func (t *tx) CountPendingTransactions() (int, error) {
	var count int
	err := t.db.Model(&pendingTransactionRow{}).Count(&count).Error
	return count, errors.Wrap(err, "counting pending transactions")
}

func (t *tx) GetTipBlock() (*store.BlockRecord, error) {
	var row blockRow
	err := t.db.Order("index desc").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading tip block")
	}
	return blockRowToRecord(row), nil
}

func (t *tx) InsertBlock(b store.BlockRecord) error {
	row := blockRow{
		Index:            b.Index,
		Hash:             b.Hash,
		PreviousHash:     b.PreviousHash,
		Miner:            b.Miner,
		Nonce:            int64(b.Nonce),
		Difficulty:       b.Difficulty,
		Timestamp:        b.Timestamp,
		MiningTime:       b.MiningTime,
		BlockSize:        b.BlockSize,
		TotalFees:        int64(b.TotalFees),
		ValidationStatus: b.ValidationStatus,
	}
	return errors.Wrap(t.db.Create(&row).Error, "inserting block")
}

func (t *tx) InsertTransactions(rows []store.TransactionRecord) error {
	for _, r := range rows {
		metaJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return errors.Wrap(err, "encoding transaction metadata")
		}
		row := transactionRow{
			TxID:             r.TxID,
			BlockIndex:       r.BlockIndex,
			Sender:           r.Sender,
			Receiver:         r.Receiver,
			Amount:           int64(r.Amount),
			Fee:              int64(r.Fee),
			CoinType:         r.CoinType,
			TransactionType:  r.TransactionType,
			Metadata:         string(metaJSON),
			Timestamp:        r.Timestamp,
			ValidationStatus: r.ValidationStatus,
		}
		if err := t.db.Create(&row).Error; err != nil {
			return errors.Wrap(err, "inserting transaction")
		}
	}
	return nil
}

func (t *tx) InsertChainStats(row store.ChainStatsRecord) error {
	r := chainStatsRow{
		BlockIndex:        row.BlockIndex,
		CurrentDifficulty: row.CurrentDifficulty,
		CurrentReward:     int64(row.CurrentReward),
		AvgBlockTime:      row.AvgBlockTime,
		HashRate:          row.HashRate,
	}
	return errors.Wrap(t.db.Create(&r).Error, "inserting chain stats")
}

func (t *tx) InsertMiningAttempt(row store.MiningAttemptRecord) error {
	r := miningAttemptRow{
		BlockIndex:    row.BlockIndex,
		Miner:         row.Miner,
		StartTime:     row.StartTime,
		Success:       row.Success,
		AttemptsCount: int64(row.AttemptsCount),
	}
	return errors.Wrap(t.db.Create(&r).Error, "inserting mining attempt")
}

func (t *tx) UpdateMiningAttempt(blockIndex int64, miner string, endTime float64, success bool, attempts uint64) error {
	result := t.db.Model(&miningAttemptRow{}).
		Where("block_index = ? AND miner = ?", blockIndex, miner).
		Updates(map[string]interface{}{
			"end_time":       endTime,
			"success":        success,
			"attempts_count": int64(attempts),
		})
	return errors.Wrap(result.Error, "updating mining attempt")
}

func (t *tx) GetStablecoin(symbol string) (*store.StablecoinRecord, error) {
	var row stableCoinRow
	err := t.db.Where(&stableCoinRow{Symbol: symbol}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading stablecoin")
	}
	return stableCoinRowToRecord(row), nil
}

func (t *tx) CreateStablecoin(row store.StablecoinRecord) error {
	var maxSupply *int64
	if row.MaxSupply != nil {
		v := int64(*row.MaxSupply)
		maxSupply = &v
	}
	r := stableCoinRow{
		Symbol:          row.Symbol,
		Name:            row.Name,
		CollateralRatio: row.CollateralRatio,
		BackedBy:        row.BackedBy,
		MaxSupply:       maxSupply,
		TotalSupply:     int64(row.TotalSupply),
		CreationDate:    row.CreationDate,
	}
	return errors.Wrap(t.db.Create(&r).Error, "creating stablecoin")
}

func (t *tx) IncrementStablecoinSupply(symbol string, amount ledgertypes.Amount) error {
	result := t.db.Exec(
		`UPDATE stable_coins SET total_supply = total_supply + ? WHERE symbol = ?`,
		int64(amount), symbol,
	)
	return errors.Wrap(result.Error, "incrementing stablecoin supply")
}

func (t *tx) IsAuthorizedMinter(symbol, minter string) (bool, error) {
	if minter == "system" {
		return true, nil
	}
	var count int
	err := t.db.Model(&authorizedMinterRow{}).
		Where("coin_symbol = ? AND minter_address = ?", symbol, minter).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "checking minter authorization")
}

func (t *tx) AuthorizeMinter(symbol, minter, authorizer string) error {
	result := t.db.Exec(
		`INSERT INTO authorized_minters (coin_symbol, minter_address, authorizer) VALUES (?, ?, ?)
		 ON CONFLICT (coin_symbol, minter_address) DO NOTHING`,
		symbol, minter, authorizer,
	)
	return errors.Wrap(result.Error, "authorizing minter")
}

func blockRowToRecord(row blockRow) *store.BlockRecord {
	return &store.BlockRecord{
		Index:            row.Index,
		Hash:             row.Hash,
		PreviousHash:     row.PreviousHash,
		Miner:            row.Miner,
		Nonce:            uint64(row.Nonce),
		Difficulty:       row.Difficulty,
		Timestamp:        row.Timestamp,
		MiningTime:       row.MiningTime,
		BlockSize:        row.BlockSize,
		TotalFees:        ledgertypes.Amount(row.TotalFees),
		ValidationStatus: row.ValidationStatus,
	}
}

func stableCoinRowToRecord(row stableCoinRow) *store.StablecoinRecord {
	var maxSupply *ledgertypes.Amount
	if row.MaxSupply != nil {
		v := ledgertypes.Amount(*row.MaxSupply)
		maxSupply = &v
	}
	return &store.StablecoinRecord{
		Symbol:          row.Symbol,
		Name:            row.Name,
		CollateralRatio: row.CollateralRatio,
		BackedBy:        row.BackedBy,
		MaxSupply:       maxSupply,
		TotalSupply:     ledgertypes.Amount(row.TotalSupply),
		CreationDate:    row.CreationDate,
	}
}
