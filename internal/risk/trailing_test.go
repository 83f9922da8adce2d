package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

func openLong(entry string) *exchange.PositionInfo {
	return &exchange.PositionInfo{
		Symbol:         "ADAUSDT",
		PositionAmount: d("10"),
		EntryPrice:     d(entry),
		Leverage:       10,
	}
}

func openShort(entry string) *exchange.PositionInfo {
	return &exchange.PositionInfo{
		Symbol:         "ADAUSDT",
		PositionAmount: d("-10"),
		EntryPrice:     d(entry),
		Leverage:       10,
	}
}

// TestAdjustStopLoss_Disabled tests the no-op when trailing stops are off
func TestAdjustStopLoss_Disabled(t *testing.T) {
	cfg := defaultRiskConfig()
	cfg.TrailingStop = false
	fake := &fakeExchange{symbolInfo: adaInfo(), position: openLong("100")}
	m := newTestManager(fake, cfg)

	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), nil)
	require.NoError(t, err)
	assert.Nil(t, stop)
	assert.Equal(t, 0, fake.positionCalls)
}

// TestAdjustStopLoss_NoOpenPosition tests the no-op when flat
func TestAdjustStopLoss_NoOpenPosition(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), nil)
	require.NoError(t, err)
	assert.Nil(t, stop)
}

// TestAdjustStopLoss_LongTightensUp tests that a favorable move raises the long stop
func TestAdjustStopLoss_LongTightensUp(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	// Entry 100, base stop 98. Price at 105 puts the trailing stop at
	// 105*0.985 = 103.425 which tightens the position.
	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.True(t, stop.Equal(d("103.43")), "got %s", stop)
}

// TestAdjustStopLoss_LongNeverLoosens tests that an unfavorable price leaves the stop alone
func TestAdjustStopLoss_LongNeverLoosens(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	// Price at 99 would put the trailing stop at 97.515, below the base
	// stop of 98 -> no update.
	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("99"), openLong("100"))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

// TestAdjustStopLoss_MonotonicAcrossRisingPrices tests that successive adjustments
// with non-decreasing prices never lower the long stop
func TestAdjustStopLoss_MonotonicAcrossRisingPrices(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	last := decimal.Zero
	for _, price := range []string{"100", "102", "102", "104", "110", "110"} {
		stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d(price), openLong("100"))
		require.NoError(t, err)
		if stop == nil {
			continue
		}
		assert.True(t, stop.GreaterThanOrEqual(last), "stop %s dropped below %s at price %s", stop, last, price)
		last = *stop
	}
}

// TestAdjustStopLoss_ShortTightensDown tests the mirror condition for shorts
func TestAdjustStopLoss_ShortTightensDown(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	// Entry 100, base stop 102. Price at 95 puts the trailing stop at
	// 95*1.015 = 96.425 which tightens the short.
	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideSell, d("95"), openShort("100"))
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.True(t, stop.Equal(d("96.43")), "got %s", stop)

	// Price back at 101.5 would loosen -> no update.
	stop, err = m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideSell, d("101.5"), openShort("100"))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

// TestAdjustStopLoss_MissingSymbolInfo tests that a missing rule lookup aborts the adjustment
func TestAdjustStopLoss_MissingSymbolInfo(t *testing.T) {
	fake := &fakeExchange{}
	m := newTestManager(fake, defaultRiskConfig())

	stop, err := m.AdjustStopLossForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

// TestAdjustTakeProfit_RequiresFlagsAndPosition tests the gating conditions
func TestAdjustTakeProfit_RequiresFlagsAndPosition(t *testing.T) {
	cfg := defaultRiskConfig()
	cfg.TrailingTakeProfit = false
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, cfg)

	tp, err := m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	assert.Nil(t, tp)

	m = newTestManager(fake, defaultRiskConfig())
	tp, err = m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), nil)
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("0"))
	require.NoError(t, err)
	assert.Nil(t, tp)
}

// TestAdjustTakeProfit_LongRatchetsUp tests that the long target only moves further into profit
func TestAdjustTakeProfit_LongRatchetsUp(t *testing.T) {
	fake := &fakeExchange{
		symbolInfo: adaInfo(),
		openOrders: []exchange.OpenOrder{{
			OrderID:   "1",
			Symbol:    "ADAUSDT",
			Type:      exchange.OrderTypeTakeProfitMarket,
			Side:      exchange.SideSell,
			StopPrice: d("108"),
		}},
	}
	m := newTestManager(fake, defaultRiskConfig())

	// 105 * 1.04 = 109.2, floored at 2 decimals, above the resting 108.
	tp, err := m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.True(t, tp.Equal(d("109.2")), "got %s", tp)

	// A resting order already beyond the candidate blocks the update.
	fake.openOrders[0].StopPrice = d("110")
	tp, err = m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	assert.Nil(t, tp)
}

// TestAdjustTakeProfit_ShortRatchetsDown tests the mirror comparison for shorts
func TestAdjustTakeProfit_ShortRatchetsDown(t *testing.T) {
	fake := &fakeExchange{
		symbolInfo: adaInfo(),
		openOrders: []exchange.OpenOrder{{
			OrderID:   "1",
			Symbol:    "ADAUSDT",
			Type:      exchange.OrderTypeTakeProfitMarket,
			Side:      exchange.SideBuy,
			StopPrice: d("92"),
		}},
	}
	m := newTestManager(fake, defaultRiskConfig())

	// 95 * 0.96 = 91.2, ceiled at 2 decimals, below the resting 92.
	tp, err := m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideSell, d("95"), openShort("100"))
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.True(t, tp.Equal(d("91.2")), "got %s", tp)

	fake.openOrders[0].StopPrice = d("90")
	tp, err = m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideSell, d("95"), openShort("100"))
	require.NoError(t, err)
	assert.Nil(t, tp)
}

// TestAdjustTakeProfit_NoRestingOrder tests the unconditional update with nothing to compare
func TestAdjustTakeProfit_NoRestingOrder(t *testing.T) {
	fake := &fakeExchange{symbolInfo: adaInfo()}
	m := newTestManager(fake, defaultRiskConfig())

	tp, err := m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.True(t, tp.Equal(d("109.2")), "got %s", tp)
}

// TestAdjustTakeProfit_MissingSymbolInfo tests that a missing rule lookup aborts the adjustment
func TestAdjustTakeProfit_MissingSymbolInfo(t *testing.T) {
	fake := &fakeExchange{}
	m := newTestManager(fake, defaultRiskConfig())

	tp, err := m.AdjustTakeProfitForTrailing(context.Background(), "ADAUSDT", exchange.SideBuy, d("105"), openLong("100"))
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.Equal(t, 0, fake.openOrderCalls)
}
