// Package stablecoin implements the Stablecoin Registry (spec.md §4.8):
// creation, minter authorization, and mint enqueueing. Grounded on
// daglabs-btcd/kasparov's registry-style services (create-then-authorize
// workflows over a durable store, idempotent on a natural key) and on
// original_source's stablecoin handlers for the authorizer-threshold and
// supply-cap checks the distilled spec carries forward.
package stablecoin

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

// authorizerMinBalance is the CAD-COIN balance an authorizer must hold,
// unless it is the literal "system" account (spec.md §4.8).
const authorizerMinBalance = 100 * ledgertypes.AmountUnit

const cadCoinSymbol = "CAD-COIN"

const defaultFeeRate = 0.001

// Registry wires stablecoin operations to the durable store.
type Registry struct {
	store  store.Store
	minFee ledgertypes.Amount
}

// New builds a Registry bound to minFee (config.MinTransactionFee).
func New(s store.Store, minFee ledgertypes.Amount) *Registry {
	return &Registry{store: s, minFee: minFee}
}

// Create registers a new coin symbol. Fails if the symbol already exists.
// symbol is uppercased before lookup/insert so "usdc" and "USDC" are the
// same coin (spec.md §3: "symbol (unique, uppercase)").
func (r *Registry) Create(ctx context.Context, symbol, name string, collateralRatio float64, backedBy string, maxSupply *ledgertypes.Amount) error {
	symbol = strings.ToUpper(symbol)
	existing, err := r.store.GetStablecoin(ctx, symbol)
	if err != nil {
		return ledgerrors.Persistence("reading stablecoin: %v", err)
	}
	if existing != nil {
		return ledgerrors.Validation("coin %q already exists", symbol)
	}

	return r.store.WithTx(ctx, func(stx store.Tx) error {
		return stx.CreateStablecoin(store.StablecoinRecord{
			Symbol:          symbol,
			Name:            name,
			CollateralRatio: collateralRatio,
			BackedBy:        backedBy,
			MaxSupply:       maxSupply,
			CreationDate:    float64(time.Now().Unix()),
		})
	})
}

// AuthorizeMinter grants minter the right to mint symbol. The "system"
// account is always authorized and bypasses the balance check. Idempotent
// on (symbol, minter).
func (r *Registry) AuthorizeMinter(ctx context.Context, symbol, minter, authorizer string) error {
	symbol = strings.ToUpper(symbol)
	coin, err := r.store.GetStablecoin(ctx, symbol)
	if err != nil {
		return ledgerrors.Persistence("reading stablecoin: %v", err)
	}
	if coin == nil {
		return ledgerrors.Validation("coin %q does not exist", symbol)
	}

	if authorizer != "system" {
		bal, err := r.store.GetBalance(ctx, authorizer, cadCoinSymbol)
		if err != nil {
			return ledgerrors.Persistence("reading authorizer balance: %v", err)
		}
		if bal < authorizerMinBalance {
			return ledgerrors.Validation(
				"authorizer %q holds %s CAD-COIN, needs >= 100", authorizer, bal,
			)
		}
	}

	return r.store.WithTx(ctx, func(stx store.Tx) error {
		return stx.AuthorizeMinter(symbol, minter, authorizer)
	})
}

// Mint enqueues a mint_stable pending transaction crediting receiver with
// amount of symbol, after checking minter authorization and the supply
// cap. The cap check counts the committed total_supply plus the amounts of
// mints of the same coin still pending in the mempool. The total_supply
// increment is deferred to block-commit time (internal/miner.Miner.Mine),
// resolving spec.md §9's mint-inflation open issue rather than incrementing
// it here at enqueue time.
func (r *Registry) Mint(ctx context.Context, symbol, minter, receiver string, amount ledgertypes.Amount) (*ledgertypes.Transaction, error) {
	symbol = strings.ToUpper(symbol)
	if !amount.IsPositive() {
		return nil, ledgerrors.Validation("mint amount must be positive")
	}

	coin, err := r.store.GetStablecoin(ctx, symbol)
	if err != nil {
		return nil, ledgerrors.Persistence("reading stablecoin: %v", err)
	}
	if coin == nil {
		return nil, ledgerrors.Validation("coin %q does not exist", symbol)
	}

	authorized, err := r.store.IsAuthorizedMinter(ctx, symbol, minter)
	if err != nil {
		return nil, ledgerrors.Persistence("checking minter authorization: %v", err)
	}
	if !authorized {
		return nil, ledgerrors.Validation("%q is not an authorized minter for %q", minter, symbol)
	}

	var reserved ledgertypes.Amount
	if coin.MaxSupply != nil {
		pending, err := r.store.PendingTransactionsByPriority(ctx, math.MaxInt32)
		if err != nil {
			return nil, ledgerrors.Persistence("reading pending transactions: %v", err)
		}
		for _, p := range pending {
			if p.CoinType == symbol && p.TransactionType == string(ledgertypes.TransactionMintStable) {
				reserved += p.Amount
			}
		}
	}
	if coin.MaxSupply != nil && coin.TotalSupply+reserved+amount > *coin.MaxSupply {
		return nil, ledgerrors.Validation(
			"mint of %s would exceed max supply %s (current %s)", amount, *coin.MaxSupply, coin.TotalSupply,
		)
	}

	fee := defaultMintFee(amount, r.minFee)
	metadata := map[string]interface{}{"minter": minter}
	txn := ledgertypes.NewTransaction(minter, receiver, amount, fee, symbol, ledgertypes.TransactionMintStable, metadata)

	err = r.store.WithTx(ctx, func(stx store.Tx) error {
		return stx.InsertPendingTransaction(store.PendingTransactionRecord{
			TxID:            txn.ID,
			Sender:          txn.Sender,
			Receiver:        txn.Receiver,
			Amount:          txn.Amount,
			Fee:             txn.Fee,
			CoinType:        txn.CoinType,
			TransactionType: string(txn.TransactionType),
			Metadata:        txn.Metadata,
			Timestamp:       txn.Timestamp,
			CreatedAt:       float64(time.Now().Unix()),
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func defaultMintFee(amount, minFee ledgertypes.Amount) ledgertypes.Amount {
	rateFee, err := ledgertypes.NewAmountFromFloat(amount.ToFloat() * defaultFeeRate)
	if err != nil || rateFee < minFee {
		return minFee
	}
	return rateFee
}
