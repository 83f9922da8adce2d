package bot

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
	"github.com/ducminhle1904/futures-risk-bot/internal/risk"
	"github.com/ducminhle1904/futures-risk-bot/internal/strategy"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// placedOrder records one order submission for assertions
type placedOrder struct {
	kind     string
	side     exchange.Side
	quantity decimal.Decimal
	price    decimal.Decimal
}

// fakeClient implements exchange.Client with canned data and records
// every order submission
type fakeClient struct {
	balance    decimal.Decimal
	price      decimal.Decimal
	symbolInfo *exchange.SymbolInfo
	position   *exchange.PositionInfo
	openOrders []exchange.OpenOrder
	klines     []exchange.Kline

	placed        []placedOrder
	cancelledAll  int
	initialized   bool
	leverageSetTo int
}

func (f *fakeClient) GetAccountBalance(ctx context.Context) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeClient) GetSymbolInfo(ctx context.Context, symbol string) (*exchange.SymbolInfo, error) {
	return f.symbolInfo, nil
}

func (f *fakeClient) GetPositionInfo(ctx context.Context, symbol string) (*exchange.PositionInfo, error) {
	if f.position == nil {
		return &exchange.PositionInfo{Symbol: symbol}, nil
	}
	return f.position, nil
}

func (f *fakeClient) GetOpenPositions(ctx context.Context) ([]exchange.PositionInfo, error) {
	if f.position.IsOpen() {
		return []exchange.PositionInfo{*f.position}, nil
	}
	return nil, nil
}

func (f *fakeClient) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	return f.openOrders, nil
}

func (f *fakeClient) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.price, nil
}

func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Kline, error) {
	return f.klines, nil
}

func (f *fakeClient) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.Side, quantity decimal.Decimal) (*exchange.Order, error) {
	f.placed = append(f.placed, placedOrder{kind: "market", side: side, quantity: quantity})
	return &exchange.Order{OrderID: "1", Symbol: symbol, Side: side, Quantity: quantity}, nil
}

func (f *fakeClient) PlaceStopLossOrder(ctx context.Context, symbol string, side exchange.Side, quantity, stopPrice decimal.Decimal) (*exchange.Order, error) {
	f.placed = append(f.placed, placedOrder{kind: "stop_loss", side: side, quantity: quantity, price: stopPrice})
	return &exchange.Order{OrderID: "2", Symbol: symbol}, nil
}

func (f *fakeClient) PlaceTakeProfitOrder(ctx context.Context, symbol string, side exchange.Side, quantity, stopPrice decimal.Decimal) (*exchange.Order, error) {
	f.placed = append(f.placed, placedOrder{kind: "take_profit", side: side, quantity: quantity, price: stopPrice})
	return &exchange.Order{OrderID: "3", Symbol: symbol}, nil
}

func (f *fakeClient) CancelAllOrders(ctx context.Context, symbol string) error {
	f.cancelledAll++
	f.openOrders = nil
	return nil
}

func (f *fakeClient) InitializeSymbol(ctx context.Context, symbol string, leverage int) error {
	f.initialized = true
	f.leverageSetTo = leverage
	return nil
}

// scriptedStrategy returns a fixed decision
type scriptedStrategy struct {
	action strategy.TradeAction
}

func (s *scriptedStrategy) GetName() string   { return "scripted" }
func (s *scriptedStrategy) WarmupPeriod() int { return 1 }
func (s *scriptedStrategy) Evaluate(klines []exchange.Kline) (*strategy.TradeDecision, error) {
	return &strategy.TradeDecision{Action: s.action, Reason: "scripted"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			Symbol:    "ADAUSDT",
			Timeframe: "15m",
			Interval:  time.Minute,
			Leverage:  10,
		},
		Risk: config.RiskConfig{
			InitialBalance:   d("1000"),
			RiskPerTrade:     d("0.01"),
			MaxOpenPositions: 1,

			UseStopLoss:   true,
			StopLossPct:   d("0.02"),
			UseTakeProfit: true,
			TakeProfitPct: d("0.08"),

			TrailingStop:          true,
			TrailingStopPct:       d("0.015"),
			TrailingTakeProfit:    true,
			TrailingTakeProfitPct: d("0.04"),

			AutoCompound:            true,
			CompoundReinvestPercent: d("0.75"),
		},
	}
}

func newTestBot(client *fakeClient, action strategy.TradeAction) *TradingBot {
	cfg := testConfig()
	log := logrus.New()
	log.SetOutput(io.Discard)
	riskManager := risk.NewManager(client, cfg.Risk, log)
	return NewTradingBot(cfg, client, riskManager, &scriptedStrategy{action: action}, nil, nil, log)
}

func flatClient() *fakeClient {
	return &fakeClient{
		balance: d("1000"),
		price:   d("100"),
		symbolInfo: &exchange.SymbolInfo{
			Symbol:            "ADAUSDT",
			QuantityPrecision: 3,
			PricePrecision:    2,
			MinQty:            d("0.001"),
			MaxQty:            d("1000000"),
			MinNotional:       d("10"),
		},
		klines: []exchange.Kline{{Close: 100}, {Close: 100}},
	}
}

// TestTick_OpensPositionWithProtectiveOrders tests the entry path
func TestTick_OpensPositionWithProtectiveOrders(t *testing.T) {
	client := flatClient()
	b := newTestBot(client, strategy.ActionBuy)

	require.NoError(t, b.Tick(context.Background()))
	require.Len(t, client.placed, 3)

	entry := client.placed[0]
	assert.Equal(t, "market", entry.kind)
	assert.Equal(t, exchange.SideBuy, entry.side)
	// Risk 10 over a stop distance of 2 buys 5 contracts.
	assert.True(t, entry.quantity.Equal(d("5")), "got %s", entry.quantity)

	stop := client.placed[1]
	assert.Equal(t, "stop_loss", stop.kind)
	assert.Equal(t, exchange.SideSell, stop.side)
	assert.True(t, stop.price.Equal(d("98")), "got %s", stop.price)

	tp := client.placed[2]
	assert.Equal(t, "take_profit", tp.kind)
	assert.Equal(t, exchange.SideSell, tp.side)
	assert.True(t, tp.price.Equal(d("108")), "got %s", tp.price)

	assert.Equal(t, 1, b.Trades().Len())
}

// TestTick_HoldOpensNothing tests that a hold decision places no orders
func TestTick_HoldOpensNothing(t *testing.T) {
	client := flatClient()
	b := newTestBot(client, strategy.ActionHold)

	require.NoError(t, b.Tick(context.Background()))
	assert.Empty(t, client.placed)
	assert.Equal(t, 0, b.Trades().Len())
}

// TestTick_SizingDeclineSkipsEntry tests that a zero quantity blocks the order
func TestTick_SizingDeclineSkipsEntry(t *testing.T) {
	client := flatClient()
	client.balance = decimal.Zero
	b := newTestBot(client, strategy.ActionBuy)

	require.NoError(t, b.Tick(context.Background()))
	assert.Empty(t, client.placed)
}

// TestTick_ClosesOnOppositeSignal tests flattening an open long on a sell
func TestTick_ClosesOnOppositeSignal(t *testing.T) {
	client := flatClient()
	client.position = &exchange.PositionInfo{
		Symbol:         "ADAUSDT",
		PositionAmount: d("5"),
		EntryPrice:     d("100"),
		Leverage:       10,
	}
	b := newTestBot(client, strategy.ActionSell)

	require.NoError(t, b.Tick(context.Background()))
	assert.Equal(t, 1, client.cancelledAll)
	require.Len(t, client.placed, 1)
	assert.Equal(t, "market", client.placed[0].kind)
	assert.Equal(t, exchange.SideSell, client.placed[0].side)
	assert.True(t, client.placed[0].quantity.Equal(d("5")))
}

// TestTick_TrailingReplacesBothOrders tests the protective order refresh
func TestTick_TrailingReplacesBothOrders(t *testing.T) {
	client := flatClient()
	client.price = d("105")
	client.position = &exchange.PositionInfo{
		Symbol:         "ADAUSDT",
		PositionAmount: d("5"),
		EntryPrice:     d("100"),
		Leverage:       10,
	}
	client.openOrders = []exchange.OpenOrder{
		{OrderID: "2", Symbol: "ADAUSDT", Type: exchange.OrderTypeStopMarket, Side: exchange.SideSell, StopPrice: d("98")},
		{OrderID: "3", Symbol: "ADAUSDT", Type: exchange.OrderTypeTakeProfitMarket, Side: exchange.SideSell, StopPrice: d("108")},
	}
	b := newTestBot(client, strategy.ActionHold)

	require.NoError(t, b.Tick(context.Background()))
	assert.Equal(t, 1, client.cancelledAll)
	require.Len(t, client.placed, 2)

	// 105*0.985 = 103.425 rounded to 103.43; 105*1.04 = 109.2.
	assert.Equal(t, "stop_loss", client.placed[0].kind)
	assert.True(t, client.placed[0].price.Equal(d("103.43")), "got %s", client.placed[0].price)
	assert.Equal(t, "take_profit", client.placed[1].kind)
	assert.True(t, client.placed[1].price.Equal(d("109.2")), "got %s", client.placed[1].price)
}

// TestTick_TrailingKeepsUntouchedTarget tests carrying over a target
// that did not move when only the other one tightened
func TestTick_TrailingKeepsUntouchedTarget(t *testing.T) {
	client := flatClient()
	client.price = d("105")
	client.position = &exchange.PositionInfo{
		Symbol:         "ADAUSDT",
		PositionAmount: d("5"),
		EntryPrice:     d("100"),
		Leverage:       10,
	}
	// The resting take profit already sits beyond the trailing target,
	// so only the stop loss should move.
	client.openOrders = []exchange.OpenOrder{
		{OrderID: "2", Symbol: "ADAUSDT", Type: exchange.OrderTypeStopMarket, Side: exchange.SideSell, StopPrice: d("98")},
		{OrderID: "3", Symbol: "ADAUSDT", Type: exchange.OrderTypeTakeProfitMarket, Side: exchange.SideSell, StopPrice: d("110")},
	}
	b := newTestBot(client, strategy.ActionHold)

	require.NoError(t, b.Tick(context.Background()))
	require.Len(t, client.placed, 2)
	assert.True(t, client.placed[0].price.Equal(d("103.43")))
	// Untouched target carried over from the resting order.
	assert.True(t, client.placed[1].price.Equal(d("110")), "got %s", client.placed[1].price)
}

// TestStartBalanceSeededOnStart tests session bootstrap
func TestStartBalanceSeededOnStart(t *testing.T) {
	client := flatClient()
	b := newTestBot(client, strategy.ActionHold)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	// Give Start time to run its bootstrap before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	assert.True(t, client.initialized)
	assert.Equal(t, 10, client.leverageSetTo)
	assert.True(t, b.StartBalance().Equal(d("1000")))
	assert.False(t, b.StartedAt().IsZero())
}
