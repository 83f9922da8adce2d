package indicators

import (
	"errors"
)

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Period returns the number of candles the EMA is averaged over
func (e *EMA) Period() int {
	return e.period
}

// Series computes one EMA value per candle starting at the period-th
// candle, seeded with the SMA of the first period closes. The value at
// index j corresponds to prices[period-1+j].
func (e *EMA) Series(prices []float64) ([]float64, error) {
	if len(prices) < e.period {
		return nil, errors.New("insufficient data for EMA calculation")
	}

	sum := 0.0
	for i := 0; i < e.period; i++ {
		sum += prices[i]
	}

	series := make([]float64, 0, len(prices)-e.period+1)
	value := sum / float64(e.period)
	series = append(series, value)

	for i := e.period; i < len(prices); i++ {
		value = (prices[i] * e.alpha) + (value * (1 - e.alpha))
		series = append(series, value)
	}

	return series, nil
}

// Calculate computes the EMA value at the latest candle
func (e *EMA) Calculate(prices []float64) (float64, error) {
	series, err := e.Series(prices)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
