package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// StepSizeFromMinQty derives the order quantity step size from the
// exchange-reported minimum quantity. The exchanges this bot targets
// publish LOT_SIZE filters where the minimum order quantity and the
// step increment coincide, so no separate step size is modeled.
func StepSizeFromMinQty(minQty decimal.Decimal) decimal.Decimal {
	return minQty
}

// precisionFromStep converts a step size into a number of decimal
// places: 0.001 -> 3, 1 -> 0, 10 -> -1.
func precisionFromStep(step decimal.Decimal) int32 {
	f, _ := step.Float64()
	return int32(math.Round(-math.Log10(f)))
}

// RoundDownToStep truncates quantity to the precision implied by the
// step size. Truncation (never rounding up) guarantees the quantized
// quantity cannot exceed the raw one, which would otherwise order more
// than the risk budget allows. Step size must be positive; a
// non-positive step returns the quantity unchanged and the caller is
// expected to have guarded against it.
func RoundDownToStep(quantity, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return quantity
	}
	return quantity.RoundDown(precisionFromStep(step))
}

// RoundToPrecision applies standard rounding at the given number of
// decimal places. Used for target prices, which are not subject to the
// exchange's floor rules the way quantities are.
func RoundToPrecision(value decimal.Decimal, places int32) decimal.Decimal {
	return value.Round(places)
}

// FloorToPrecision rounds down (toward negative infinity) at the given
// number of decimal places.
func FloorToPrecision(value decimal.Decimal, places int32) decimal.Decimal {
	return value.RoundFloor(places)
}

// CeilToPrecision rounds up (toward positive infinity) at the given
// number of decimal places.
func CeilToPrecision(value decimal.Decimal, places int32) decimal.Decimal {
	return value.RoundCeil(places)
}
