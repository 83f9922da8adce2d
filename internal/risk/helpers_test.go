package risk

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// fakeExchange implements ExchangeReader with canned data and counts
// calls so tests can assert that disabled features never hit the
// collaborator.
type fakeExchange struct {
	balance    decimal.Decimal
	balanceErr error

	symbolInfo    *exchange.SymbolInfo
	symbolInfoErr error

	position    *exchange.PositionInfo
	positionErr error

	positions []exchange.PositionInfo

	openOrders    []exchange.OpenOrder
	openOrdersErr error

	balanceCalls    int
	symbolInfoCalls int
	positionCalls   int
	openOrderCalls  int
}

func (f *fakeExchange) GetAccountBalance(ctx context.Context) (decimal.Decimal, error) {
	f.balanceCalls++
	return f.balance, f.balanceErr
}

func (f *fakeExchange) GetSymbolInfo(ctx context.Context, symbol string) (*exchange.SymbolInfo, error) {
	f.symbolInfoCalls++
	return f.symbolInfo, f.symbolInfoErr
}

func (f *fakeExchange) GetPositionInfo(ctx context.Context, symbol string) (*exchange.PositionInfo, error) {
	f.positionCalls++
	return f.position, f.positionErr
}

func (f *fakeExchange) GetOpenPositions(ctx context.Context) ([]exchange.PositionInfo, error) {
	return f.positions, nil
}

func (f *fakeExchange) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	f.openOrderCalls++
	return f.openOrders, f.openOrdersErr
}

// adaInfo mirrors the LOT_SIZE/precision rules of a typical USDT
// perpetual used throughout the tests
func adaInfo() *exchange.SymbolInfo {
	return &exchange.SymbolInfo{
		Symbol:            "ADAUSDT",
		QuantityPrecision: 3,
		PricePrecision:    2,
		MinQty:            d("0.001"),
		MaxQty:            d("1000000"),
		MinNotional:       d("10"),
	}
}

func defaultRiskConfig() config.RiskConfig {
	return config.RiskConfig{
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
	}
}

func newTestManager(client ExchangeReader, cfg config.RiskConfig) *Manager {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewManager(client, cfg, log)
}
