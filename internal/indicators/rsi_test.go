package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRSI_Calculate tests the RSI formula against hand-computed values
func TestRSI_Calculate(t *testing.T) {
	rsi := NewRSI(2)

	// Changes: 0, 0, 0, -1, -1, 4. Last two gains average 2, last two
	// losses average 0.5, so RS = 4 and RSI = 80.
	value, err := rsi.Calculate([]float64{10, 10, 10, 10, 9, 8, 12})
	require.NoError(t, err)
	assert.InDelta(t, 80.0, value, 1e-9)
}

// TestRSI_AllGains tests the division guard when there are no losses
func TestRSI_AllGains(t *testing.T) {
	rsi := NewRSI(3)

	value, err := rsi.Calculate([]float64{100, 101, 102, 103, 104})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, value, 1e-9)
}

// TestRSI_Range tests that RSI stays within its bounds on mixed data
func TestRSI_Range(t *testing.T) {
	rsi := NewRSI(14)

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100.0 + float64(i%5) - float64(i%3)
	}

	value, err := rsi.Calculate(prices)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 100.0)
}

// TestRSI_InsufficientData tests the minimum data requirement
func TestRSI_InsufficientData(t *testing.T) {
	rsi := NewRSI(14)

	_, err := rsi.Calculate([]float64{100, 101, 102})
	assert.Error(t, err)
}
