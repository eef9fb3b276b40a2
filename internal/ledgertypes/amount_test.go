package ledgertypes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmountFromFloat(t *testing.T) {
	amt, err := NewAmountFromFloat(10.5)
	require.NoError(t, err)
	assert.Equal(t, Amount(1050000000), amt)
	assert.InDelta(t, 10.5, amt.ToFloat(), 1e-9)
}

func TestNewAmountFromFloat_RejectsNaNAndInf(t *testing.T) {
	_, err := NewAmountFromFloat(math.NaN())
	assert.Error(t, err)

	_, err = NewAmountFromFloat(math.Inf(1))
	assert.Error(t, err)
}

func TestAmount_PositiveNegative(t *testing.T) {
	pos, _ := NewAmountFromFloat(1)
	neg, _ := NewAmountFromFloat(-1)
	zero, _ := NewAmountFromFloat(0)

	assert.True(t, pos.IsPositive())
	assert.False(t, neg.IsPositive())
	assert.True(t, neg.IsNegative())
	assert.False(t, zero.IsPositive())
	assert.False(t, zero.IsNegative())
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	amt, err := NewAmountFromFloat(39.99)
	require.NoError(t, err)

	data, err := amt.MarshalJSON()
	require.NoError(t, err)

	var roundTripped Amount
	require.NoError(t, roundTripped.UnmarshalJSON(data))
	assert.Equal(t, amt, roundTripped)
}
