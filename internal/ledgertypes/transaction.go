package ledgertypes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates the kinds of transaction the ledger accepts.
type TransactionType string

const (
	// TransactionTransfer moves funds between two distinct accounts.
	TransactionTransfer TransactionType = "transfer"
	// TransactionMiningReward credits a miner with the block subsidy plus fees.
	TransactionMiningReward TransactionType = "mining_reward"
	// TransactionMintStable credits newly issued stablecoin units.
	TransactionMintStable TransactionType = "mint_stable"
)

// MinAddressLength is the minimum length for sender/receiver identifiers.
const MinAddressLength = 3

// Transaction is an immutable value object once admitted to the mempool.
type Transaction struct {
	ID              string
	Sender          string
	Receiver        string
	Amount          Amount
	Fee             Amount
	CoinType        string
	TransactionType TransactionType
	Metadata        map[string]interface{}
	Timestamp       float64
}

// NewTransaction builds a transaction with a fresh identifier and the
// current time, mirroring Transaction.__init__ in the original service.
func NewTransaction(sender, receiver string, amount, fee Amount, coinType string, txType TransactionType, metadata map[string]interface{}) *Transaction {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Transaction{
		ID:              uuid.New().String(),
		Sender:          sender,
		Receiver:        receiver,
		Amount:          amount,
		Fee:             fee,
		CoinType:        coinType,
		TransactionType: txType,
		Metadata:        metadata,
		Timestamp:       float64(time.Now().UnixNano()) / 1e9,
	}
}

// CanonicalMap returns the field set used for hashing and wire encoding.
// Built as a plain map so encoding/json emits keys in sorted order, giving
// the same canonical form regardless of struct field order.
func (t *Transaction) CanonicalMap() map[string]interface{} {
	return map[string]interface{}{
		"id":               t.ID,
		"sender":           t.Sender,
		"receiver":         t.Receiver,
		"amount":           t.Amount.ToFloat(),
		"fee":              t.Fee.ToFloat(),
		"coin_type":        t.CoinType,
		"transaction_type": string(t.TransactionType),
		"metadata":         t.Metadata,
		"timestamp":        t.Timestamp,
	}
}

// Hash returns the SHA-256 hex digest of the transaction's canonical form.
func (t *Transaction) Hash() string {
	data, err := json.Marshal(t.CanonicalMap())
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate enforces the invariants from the data model: amount strictly
// positive, fee non-negative, addresses at least MinAddressLength long, and
// no self-transfers for plain transfers.
func (t *Transaction) Validate() (bool, string) {
	if !t.Amount.IsPositive() {
		return false, "Amount must be positive"
	}
	if t.Fee.IsNegative() {
		return false, "Fee cannot be negative"
	}
	if len(t.Sender) < MinAddressLength || len(t.Receiver) < MinAddressLength {
		return false, "Invalid address format"
	}
	if t.Sender == t.Receiver && t.TransactionType == TransactionTransfer {
		return false, "Cannot transfer to self"
	}
	return true, "Valid"
}

// Wire is the JSON-facing representation of a Transaction, used by the HTTP
// layer and by store round-trips.
type Wire struct {
	ID              string                 `json:"id"`
	Sender          string                 `json:"sender"`
	Receiver        string                 `json:"receiver"`
	Amount          float64                `json:"amount"`
	Fee             float64                `json:"fee"`
	CoinType        string                 `json:"coin_type"`
	TransactionType string                 `json:"transaction_type"`
	Metadata        map[string]interface{} `json:"metadata"`
	Timestamp       float64                `json:"timestamp"`
}

// ToWire converts the transaction to its JSON-facing form.
func (t *Transaction) ToWire() Wire {
	return Wire{
		ID:              t.ID,
		Sender:          t.Sender,
		Receiver:        t.Receiver,
		Amount:          t.Amount.ToFloat(),
		Fee:             t.Fee.ToFloat(),
		CoinType:        t.CoinType,
		TransactionType: string(t.TransactionType),
		Metadata:        t.Metadata,
		Timestamp:       t.Timestamp,
	}
}
