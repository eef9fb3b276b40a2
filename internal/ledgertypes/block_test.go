package ledgertypes

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_MineFindsValidNonce(t *testing.T) {
	amount, _ := NewAmountFromFloat(50)
	reward := NewTransaction("mining_reward", "alice", amount, 0, "CAD-COIN", TransactionMiningReward, nil)
	block := NewBlock(1, []*Transaction{reward}, GenesisHash(), "alice", 1)

	solved := block.Mine(5 * time.Second)
	require.True(t, solved, "mining at difficulty 1 should succeed well within the timeout")
	assert.True(t, strings.HasPrefix(block.Hash, "0"))
	assert.Equal(t, block.CalculateHash(), block.Hash)
}

func TestBlock_MineTimesOutAtImpossibleDifficulty(t *testing.T) {
	amount, _ := NewAmountFromFloat(50)
	reward := NewTransaction("mining_reward", "alice", amount, 0, "CAD-COIN", TransactionMiningReward, nil)
	block := NewBlock(1, []*Transaction{reward}, GenesisHash(), "alice", 64)

	solved := block.Mine(10 * time.Millisecond)
	assert.False(t, solved)
}

func TestBlock_Validate(t *testing.T) {
	amount, _ := NewAmountFromFloat(50)
	reward := NewTransaction("mining_reward", "alice", amount, 0, "CAD-COIN", TransactionMiningReward, nil)
	block := NewBlock(1, []*Transaction{reward}, GenesisHash(), "alice", 1)
	require.True(t, block.Mine(5*time.Second))

	ok, _ := block.Validate(GenesisHash())
	assert.True(t, ok)

	ok, reason := block.Validate("wrong-previous-hash")
	assert.False(t, ok)
	assert.Contains(t, reason, "Invalid previous hash")
}

func TestBlock_ValidateRejectsEmptyBody(t *testing.T) {
	block := NewBlock(1, nil, GenesisHash(), "alice", 1)
	require.True(t, block.Mine(5*time.Second))

	ok, reason := block.Validate(GenesisHash())
	assert.False(t, ok)
	assert.Equal(t, "Block cannot be empty", reason)
}
