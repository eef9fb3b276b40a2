package postgres

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// Reads that do not require transactional isolation. Grounded on
// apiserver/server/routes.go's read-path handlers, which query gorm
// directly rather than opening a transaction.

func (s *Store) GetTipBlock(ctx context.Context) (*store.BlockRecord, error) {
	var row blockRow
	err := s.db.Order("index desc").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading tip block")
	}
	return blockRowToRecord(row), nil
}

func (s *Store) GetBlockByIndex(ctx context.Context, index int64) (*store.BlockRecord, error) {
	var row blockRow
	err := s.db.Where(&blockRow{Index: index}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading block by index")
	}
	return blockRowToRecord(row), nil
}

func (s *Store) CountBlocks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.Model(&blockRow{}).Count(&count).Error
	return count, errors.Wrap(err, "counting blocks")
}

func (s *Store) RecentBlocks(ctx context.Context, n int) ([]store.BlockRecord, error) {
	var rows []blockRow
	err := s.db.Order("index desc").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading recent blocks")
	}
	out := make([]store.BlockRecord, len(rows))
	for i, r := range rows {
		out[i] = *blockRowToRecord(r)
	}
	return out, nil
}

func (s *Store) ListBlocksPaged(ctx context.Context, limit, offset int) ([]store.BlockRecord, error) {
	var rows []blockRow
	err := s.db.Order("index desc").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing blocks")
	}
	out := make([]store.BlockRecord, len(rows))
	for i, r := range rows {
		out[i] = *blockRowToRecord(r)
	}
	return out, nil
}

func (s *Store) TransactionsForBlocks(ctx context.Context, indices []int64) ([]store.TransactionRecord, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	var rows []transactionRow
	err := s.db.Where("block_index in (?)", indices).Order("block_index asc, id asc").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading transactions for blocks")
	}
	out := make([]store.TransactionRecord, len(rows))
	for i, r := range rows {
		out[i] = store.TransactionRecord{
			TxID:             r.TxID,
			BlockIndex:       r.BlockIndex,
			Sender:           r.Sender,
			Receiver:         r.Receiver,
			Amount:           ledgertypes.Amount(r.Amount),
			Fee:              ledgertypes.Amount(r.Fee),
			CoinType:         r.CoinType,
			TransactionType:  r.TransactionType,
			Metadata:         r.metadataMap(),
			Timestamp:        r.Timestamp,
			ValidationStatus: r.ValidationStatus,
		}
	}
	return out, nil
}

func (s *Store) GetBalance(ctx context.Context, address, coinType string) (ledgertypes.Amount, error) {
	var row balanceRow
	err := s.db.Where(&balanceRow{Address: address, CoinType: coinType}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading balance")
	}
	return ledgertypes.Amount(row.Balance), nil
}

func (s *Store) GetBalances(ctx context.Context, address string) (map[string]ledgertypes.Amount, error) {
	var rows []balanceRow
	err := s.db.Where(&balanceRow{Address: address}).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading balances")
	}
	out := make(map[string]ledgertypes.Amount, len(rows))
	for _, r := range rows {
		out[r.CoinType] = ledgertypes.Amount(r.Balance)
	}
	return out, nil
}

// PendingTransactionsByPriority orders the mempool by the priority score
// internal/mempool.Priority computes in Go (fee + (now-created_at)/3600),
// mirroring the original's heap ordering on that same combined score
// (original_source/src/models/blockchain.py's pending-transaction query).
// The expression is re-derived here in SQL rather than shared as code
// because store/postgres has no dependency on internal/mempool. The fee
// column holds 1e-8 base units, so it is scaled back to whole coins first.
func (s *Store) PendingTransactionsByPriority(ctx context.Context, limit int) ([]store.PendingTransactionRecord, error) {
	var rows []pendingTransactionRow
	priorityExpr := "fee / 100000000.0 + (extract(epoch from now()) - created_at) / 3600.0"
	err := s.db.Order(priorityExpr + " desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading pending transactions")
	}
	out := make([]store.PendingTransactionRecord, len(rows))
	for i, r := range rows {
		out[i] = store.PendingTransactionRecord{
			TxID:            r.TxID,
			Sender:          r.Sender,
			Receiver:        r.Receiver,
			Amount:          ledgertypes.Amount(r.Amount),
			Fee:             ledgertypes.Amount(r.Fee),
			CoinType:        r.CoinType,
			TransactionType: r.TransactionType,
			Metadata:        r.metadataMap(),
			Timestamp:       r.Timestamp,
			CreatedAt:       r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) CountPendingTransactions(ctx context.Context) (int, error) {
	var count int
	err := s.db.Model(&pendingTransactionRow{}).Count(&count).Error
	return count, errors.Wrap(err, "counting pending transactions")
}

// SumPendingDebits sums the amount+fee of every pending transaction whose
// sender is address, in coinType — the effective-balance figure the
// mempool's admission check subtracts from the on-chain balance (the
// resolution of spec.md §9's double-spend Open Question).
func (s *Store) SumPendingDebits(ctx context.Context, address, coinType string) (ledgertypes.Amount, error) {
	var total int64
	row := s.db.Table("pending_transactions").
		Where("sender = ? AND coin_type = ?", address, coinType).
		Select("COALESCE(SUM(amount + fee), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, errors.Wrap(err, "summing pending debits")
	}
	return ledgertypes.Amount(total), nil
}

func (s *Store) GetStablecoin(ctx context.Context, symbol string) (*store.StablecoinRecord, error) {
	var row stableCoinRow
	err := s.db.Where(&stableCoinRow{Symbol: symbol}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading stablecoin")
	}
	return stableCoinRowToRecord(row), nil
}

func (s *Store) ListStablecoins(ctx context.Context) (map[string]store.StablecoinRecord, error) {
	var rows []stableCoinRow
	err := s.db.Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing stablecoins")
	}
	out := make(map[string]store.StablecoinRecord, len(rows))
	for _, r := range rows {
		out[r.Symbol] = *stableCoinRowToRecord(r)
	}
	return out, nil
}

func (s *Store) IsAuthorizedMinter(ctx context.Context, symbol, minter string) (bool, error) {
	if minter == "system" {
		return true, nil
	}
	var count int
	err := s.db.Model(&authorizedMinterRow{}).
		Where("coin_symbol = ? AND minter_address = ?", symbol, minter).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "checking minter authorization")
}

func (s *Store) ChainStatsWindow(ctx context.Context, n int) ([]store.ChainStatsRecord, error) {
	var rows []chainStatsRow
	err := s.db.Order("block_index desc").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading chain stats window")
	}
	out := make([]store.ChainStatsRecord, len(rows))
	for i, r := range rows {
		out[i] = store.ChainStatsRecord{
			BlockIndex:        r.BlockIndex,
			CurrentDifficulty: r.CurrentDifficulty,
			CurrentReward:     ledgertypes.Amount(r.CurrentReward),
			AvgBlockTime:      r.AvgBlockTime,
			HashRate:          r.HashRate,
		}
	}
	return out, nil
}

func (s *Store) MiningStatsWindow(ctx context.Context, sinceUnix float64) ([]store.MiningAttemptRecord, error) {
	var rows []miningAttemptRow
	err := s.db.Where("start_time >= ?", sinceUnix).Order("start_time asc").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "reading mining attempts window")
	}
	out := make([]store.MiningAttemptRecord, len(rows))
	for i, r := range rows {
		out[i] = store.MiningAttemptRecord{
			BlockIndex:    r.BlockIndex,
			Miner:         r.Miner,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Success:       r.Success,
			AttemptsCount: uint64(r.AttemptsCount),
		}
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u store.UserRecord) error {
	now := float64(time.Now().Unix())
	row := userRow{
		Address:         u.Address,
		PasswordHash:    u.PasswordHash,
		ReputationScore: u.ReputationScore,
		CreatedAt:       now,
		LastActivity:    now,
	}
	return errors.Wrap(s.db.Create(&row).Error, "creating user")
}

func (s *Store) GetUser(ctx context.Context, address string) (*store.UserRecord, error) {
	var row userRow
	err := s.db.Where(&userRow{Address: address}).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading user")
	}
	return &store.UserRecord{
		Address:         row.Address,
		PasswordHash:    row.PasswordHash,
		ReputationScore: row.ReputationScore,
	}, nil
}

func (s *Store) TouchUserActivity(ctx context.Context, address string) error {
	result := s.db.Model(&userRow{}).Where("address = ?", address).
		Update("last_activity", float64(time.Now().Unix()))
	return errors.Wrap(result.Error, "touching user activity")
}
