package ledgertypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_CanonicalHashIgnoresFieldOrder(t *testing.T) {
	amount, _ := NewAmountFromFloat(10)
	fee, _ := NewAmountFromFloat(0.01)

	a := &Transaction{
		ID: "fixed-id", Sender: "alice", Receiver: "bob",
		Amount: amount, Fee: fee, CoinType: "CAD-COIN",
		TransactionType: TransactionTransfer,
		Metadata:        map[string]interface{}{"b": 2, "a": 1},
		Timestamp:       1700000000,
	}
	b := &Transaction{
		ID: "fixed-id", Sender: "alice", Receiver: "bob",
		Amount: amount, Fee: fee, CoinType: "CAD-COIN",
		TransactionType: TransactionTransfer,
		Metadata:        map[string]interface{}{"a": 1, "b": 2},
		Timestamp:       1700000000,
	}

	assert.Equal(t, a.Hash(), b.Hash(), "field insertion order must not affect the canonical hash")
}

func TestTransaction_Validate(t *testing.T) {
	amount, _ := NewAmountFromFloat(10)
	fee, _ := NewAmountFromFloat(0.01)

	valid := NewTransaction("alice", "bob", amount, fee, "CAD-COIN", TransactionTransfer, nil)
	ok, _ := valid.Validate()
	assert.True(t, ok)

	selfTransfer := NewTransaction("alice", "alice", amount, fee, "CAD-COIN", TransactionTransfer, nil)
	ok, reason := selfTransfer.Validate()
	assert.False(t, ok)
	assert.Equal(t, "Cannot transfer to self", reason)

	zeroAmount, _ := NewAmountFromFloat(0)
	invalidAmount := NewTransaction("alice", "bob", zeroAmount, fee, "CAD-COIN", TransactionTransfer, nil)
	ok, _ = invalidAmount.Validate()
	assert.False(t, ok)

	shortAddr := NewTransaction("al", "bob", amount, fee, "CAD-COIN", TransactionTransfer, nil)
	ok, reason = shortAddr.Validate()
	assert.False(t, ok)
	assert.Equal(t, "Invalid address format", reason)
}

func TestTransaction_NewAssignsUniqueIDs(t *testing.T) {
	amount, _ := NewAmountFromFloat(1)
	a := NewTransaction("alice", "bob", amount, 0, "CAD-COIN", TransactionTransfer, nil)
	b := NewTransaction("alice", "bob", amount, 0, "CAD-COIN", TransactionTransfer, nil)
	require.NotEqual(t, a.ID, b.ID)
}
