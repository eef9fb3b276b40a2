package ledgertypes

import (
	"encoding/json"
	"fmt"
	"math"
)

// AmountUnit is the number of base units per whole CAD-COIN (or stablecoin
// unit), fixing the ledger to 8 fractional digits the same way btcutil.Amount
// fixes bitcoin to 8 decimal places of satoshis.
const AmountUnit = 1e8

// Amount is a fixed-point monetary value stored as an integer count of
// 1e-8 units. Using an integer base avoids the float accumulation error the
// original Python implementation carries (it stores amounts as float64).
type Amount int64

// NewAmountFromFloat converts a decimal CAD-COIN value into its fixed-point
// representation, rounding to the nearest base unit.
func NewAmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %v", f)
	}
	round := math.Round(f * AmountUnit)
	if round < math.MinInt64 || round > math.MaxInt64 {
		return 0, fmt.Errorf("amount %v overflows", f)
	}
	return Amount(round), nil
}

// ToFloat returns the value as a decimal CAD-COIN float.
func (a Amount) ToFloat() float64 {
	return float64(a) / AmountUnit
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%.8f", a.ToFloat())
}

// MarshalJSON renders the amount as a JSON number with decimal precision,
// matching the original service's float-valued wire format.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%.8f", a.ToFloat())), nil
}

// UnmarshalJSON accepts a JSON number and converts it to base units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	amt, err := NewAmountFromFloat(f)
	if err != nil {
		return err
	}
	*a = amt
	return nil
}
