package ledgertypes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GenesisPreviousHash is the sentinel previous-hash value for block 0.
const GenesisPreviousHash = "0"

// miningCheckCadence is how many nonce increments elapse between wall-clock
// reads during PoW, amortizing the cost of the clock read as spec.md §4.2
// allows.
const miningCheckCadence = 100000

// Block is the aggregate of transactions committed at a given chain index.
type Block struct {
	Index        int64
	Transactions  []*Transaction
	PreviousHash string
	Miner        string
	Timestamp    float64
	Difficulty   int
	Nonce        uint64
	Hash         string

	MiningTime float64
	BlockSize  int
	TotalFees  Amount
}

// NewBlock assembles a block ready for mining. Timestamp is fixed at
// construction so calculate_hash's canonical form is stable across PoW
// iterations (only nonce and hash change per attempt).
func NewBlock(index int64, transactions []*Transaction, previousHash, miner string, difficulty int) *Block {
	var totalFees Amount
	for _, tx := range transactions {
		totalFees += tx.Fee
	}
	return &Block{
		Index:        index,
		Transactions: transactions,
		PreviousHash: previousHash,
		Miner:        miner,
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		Difficulty:   difficulty,
		BlockSize:    len(transactions),
		TotalFees:    totalFees,
	}
}

func (b *Block) canonicalMap() map[string]interface{} {
	txs := make([]map[string]interface{}, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.CanonicalMap()
	}
	return map[string]interface{}{
		"index":         b.Index,
		"transactions":  txs,
		"previous_hash": b.PreviousHash,
		"miner":         b.Miner,
		"timestamp":     b.Timestamp,
		"nonce":         b.Nonce,
	}
}

// CalculateHash returns the SHA-256 hex digest of the block's canonical form.
func (b *Block) CalculateHash() string {
	data, err := json.Marshal(b.canonicalMap())
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Mine searches for a nonce producing a hash with Difficulty leading zero
// hex characters, giving up after timeout has elapsed. It returns false on
// timeout; Hash is then left at the last hash tried, which does not meet the
// difficulty target.
func (b *Block) Mine(timeout time.Duration) bool {
	target := strings.Repeat("0", b.Difficulty)
	start := time.Now()
	b.Nonce = 0

	for {
		b.Hash = b.CalculateHash()
		if strings.HasPrefix(b.Hash, target) {
			b.MiningTime = time.Since(start).Seconds()
			return true
		}

		b.Nonce++
		if b.Nonce%miningCheckCadence == 0 {
			if time.Since(start) > timeout {
				return false
			}
		}
	}
}

// Validate checks the post-mining invariants from spec.md §4.2: correct
// linkage, hash difficulty, hash recomputation, non-empty body, and every
// contained transaction's own validity.
func (b *Block) Validate(expectedPreviousHash string) (bool, string) {
	if b.PreviousHash != expectedPreviousHash {
		return false, fmt.Sprintf("Invalid previous hash. Expected: %s, Got: %s", expectedPreviousHash, b.PreviousHash)
	}
	target := strings.Repeat("0", b.Difficulty)
	if b.Hash == "" || !strings.HasPrefix(b.Hash, target) {
		return false, "Invalid block hash or difficulty"
	}
	if b.CalculateHash() != b.Hash {
		return false, "Block hash verification failed"
	}
	if len(b.Transactions) == 0 {
		return false, "Block cannot be empty"
	}
	for _, tx := range b.Transactions {
		if ok, reason := tx.Validate(); !ok {
			return false, fmt.Sprintf("Invalid transaction %s: %s", tx.ID, reason)
		}
	}
	return true, "Valid"
}

// GenesisHash is the fixed hash of the seeded genesis block.
func GenesisHash() string {
	sum := sha256.Sum256([]byte("genesis_block_cad_coin_ultra_robust"))
	return hex.EncodeToString(sum[:])
}
