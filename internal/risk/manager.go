package risk

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// ExchangeReader is the read-only slice of the exchange client the risk
// manager depends on. Test doubles implement the same contract.
type ExchangeReader interface {
	GetAccountBalance(ctx context.Context) (decimal.Decimal, error)
	GetSymbolInfo(ctx context.Context, symbol string) (*exchange.SymbolInfo, error)
	GetPositionInfo(ctx context.Context, symbol string) (*exchange.PositionInfo, error)
	GetOpenPositions(ctx context.Context) ([]exchange.PositionInfo, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error)
}

// minNotionalHeadroom scales the exchange minimum notional before the
// quantity is raised to meet it, leaving room for rounding on the
// exchange side. 1.0 means the raised quantity is simply ceiled at the
// symbol's quantity precision.
var minNotionalHeadroom = decimal.NewFromInt(1)

var one = decimal.NewFromInt(1)

// Manager sizes positions, derives protective prices and tracks the
// balance used for compounding. The balance snapshot is the only
// mutable state it owns; there is no internal locking, so callers that
// share one Manager across goroutines must serialize access (one
// sizing/compounding call per trading tick).
type Manager struct {
	client ExchangeReader
	cfg    config.RiskConfig
	log    *logrus.Entry

	// Balance snapshot. initialBalance is seeded once and never
	// changes; lastKnownBalance is the baseline for profit detection.
	initialBalance   *decimal.Decimal
	lastKnownBalance *decimal.Decimal
}

// NewManager creates a risk manager bound to an exchange reader
func NewManager(client ExchangeReader, cfg config.RiskConfig, log *logrus.Logger) *Manager {
	return &Manager{
		client: client,
		cfg:    cfg,
		log:    log.WithField("module", "risk"),
	}
}

// InitialBalance returns the first observed balance, or zero before the
// first sizing/compounding call
func (m *Manager) InitialBalance() decimal.Decimal {
	if m.initialBalance == nil {
		return decimal.Zero
	}
	return *m.initialBalance
}

func (m *Manager) seedBalance(balance decimal.Decimal) {
	b := balance
	m.initialBalance = &b
	m.lastKnownBalance = &b
}

// applyProfitDelta compares the current balance against the last known
// one and advances the baseline. Both the sizing path and the
// compounding tracker call this, so a profit delta is applied exactly
// once no matter which of the two observes it first. Returns true when
// a positive delta was compounded.
func (m *Manager) applyProfitDelta(current decimal.Decimal) bool {
	profit := current.Sub(*m.lastKnownBalance)
	c := current

	if profit.IsPositive() {
		reinvest := profit.Mul(m.cfg.CompoundReinvestPercent)
		m.log.WithFields(logrus.Fields{
			"profit":   profit.StringFixed(2),
			"reinvest": reinvest.StringFixed(2),
		}).Info("Auto-compounding realized profit")
		m.lastKnownBalance = &c
		return true
	}

	if profit.IsNegative() {
		// Drawdowns move the baseline down but trigger no action.
		m.lastKnownBalance = &c
	}
	return false
}

// CalculatePositionSize converts the configured risk budget and the
// distance to the stop loss into an order quantity honoring the
// symbol's step size and minimum notional. A zero return with a nil
// error means "do not trade": insufficient balance, missing symbol
// rules, a stop at the entry price, or a minimum notional that cannot
// be met without exceeding the risk budget.
func (m *Manager) CalculatePositionSize(ctx context.Context, symbol string, side exchange.Side, price decimal.Decimal, stopLossPrice *decimal.Decimal) (decimal.Decimal, error) {
	balance, err := m.client.GetAccountBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	seeded := m.lastKnownBalance != nil
	if !seeded {
		m.seedBalance(balance)
	}
	if m.cfg.AutoCompound && seeded {
		m.applyProfitDelta(balance)
	}

	if !balance.IsPositive() {
		m.log.Error("Insufficient balance to open a position")
		return decimal.Zero, nil
	}

	info, err := m.client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if info == nil {
		m.log.WithField("symbol", symbol).Error("Could not retrieve symbol info")
		return decimal.Zero, nil
	}

	riskAmount := balance.Mul(m.cfg.RiskPerTrade)

	var maxQuantity decimal.Decimal
	if stopLossPrice != nil {
		// Explicit stop distance takes precedence over the
		// leverage-implied heuristic.
		riskPerUnit := price.Sub(*stopLossPrice).Abs()
		if !riskPerUnit.IsPositive() {
			m.log.WithFields(logrus.Fields{
				"symbol": symbol,
				"price":  price,
			}).Error("Stop loss too close to entry price")
			return decimal.Zero, nil
		}
		maxQuantity = riskAmount.Div(riskPerUnit)
	} else {
		leverage := m.CurrentLeverage(ctx, symbol)
		maxQuantity = riskAmount.Mul(decimal.NewFromInt(int64(leverage))).Div(price)
	}

	quantity := RoundDownToStep(maxQuantity, StepSizeFromMinQty(info.MinQty))
	if info.MaxQty.IsPositive() && quantity.GreaterThan(info.MaxQty) {
		quantity = info.MaxQty
	}

	if quantity.Mul(price).LessThan(info.MinNotional) {
		m.log.WithFields(logrus.Fields{
			"symbol":       symbol,
			"quantity":     quantity,
			"min_notional": info.MinNotional,
		}).Warn("Position size below minimum notional")

		required := info.MinNotional.Mul(minNotionalHeadroom).Div(price)
		raised := CeilToPrecision(required, int32(info.QuantityPrecision))
		if raised.LessThanOrEqual(maxQuantity) {
			quantity = raised
			m.log.WithField("quantity", quantity).Info("Adjusted position size to meet minimum notional")
		} else {
			m.log.WithField("symbol", symbol).Error("Cannot meet minimum notional within the configured risk limit")
			return decimal.Zero, nil
		}
	}

	m.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price,
	}).Info("Calculated position size")
	return quantity, nil
}

// CurrentLeverage returns the leverage configured for the symbol's
// position, defaulting to 1x when no position data is available
func (m *Manager) CurrentLeverage(ctx context.Context, symbol string) int {
	pos, err := m.client.GetPositionInfo(ctx, symbol)
	if err != nil || pos == nil || pos.Leverage < 1 {
		return 1
	}
	return pos.Leverage
}

// ShouldOpenPosition checks the admission rules for a new position:
// no existing position on the symbol and fewer open positions than
// MAX_OPEN_POSITIONS across the account
func (m *Manager) ShouldOpenPosition(ctx context.Context, symbol string) (bool, error) {
	pos, err := m.client.GetPositionInfo(ctx, symbol)
	if err != nil {
		return false, err
	}
	if pos.IsOpen() {
		m.log.WithField("symbol", symbol).Info("Already have an open position")
		return false, nil
	}

	positions, err := m.client.GetOpenPositions(ctx)
	if err != nil {
		return false, err
	}
	open := 0
	for i := range positions {
		if !positions[i].PositionAmount.IsZero() {
			open++
		}
	}
	if open >= m.cfg.MaxOpenPositions {
		m.log.WithField("max_open_positions", m.cfg.MaxOpenPositions).Info("Maximum number of open positions reached")
		return false, nil
	}
	return true, nil
}

// CalculateStopLoss derives the protective stop price from the entry
// price and the configured percentage. Returns nil when stop losses
// are disabled.
func (m *Manager) CalculateStopLoss(ctx context.Context, symbol string, side exchange.Side, entryPrice decimal.Decimal) (*decimal.Decimal, error) {
	if !m.cfg.UseStopLoss {
		return nil, nil
	}

	var stopPrice decimal.Decimal
	if side == exchange.SideBuy {
		stopPrice = entryPrice.Mul(one.Sub(m.cfg.StopLossPct))
	} else {
		stopPrice = entryPrice.Mul(one.Add(m.cfg.StopLossPct))
	}

	info, err := m.client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info != nil {
		stopPrice = RoundToPrecision(stopPrice, int32(info.PricePrecision))
	}

	m.log.WithFields(logrus.Fields{
		"symbol": symbol,
		"side":   side,
		"stop":   stopPrice,
	}).Info("Calculated stop loss")
	return &stopPrice, nil
}

// CalculateTakeProfit derives the profit target price from the entry
// price and the configured percentage. Returns nil when take profits
// are disabled.
func (m *Manager) CalculateTakeProfit(ctx context.Context, symbol string, side exchange.Side, entryPrice decimal.Decimal) (*decimal.Decimal, error) {
	if !m.cfg.UseTakeProfit {
		return nil, nil
	}

	var takeProfit decimal.Decimal
	if side == exchange.SideBuy {
		takeProfit = entryPrice.Mul(one.Add(m.cfg.TakeProfitPct))
	} else {
		takeProfit = entryPrice.Mul(one.Sub(m.cfg.TakeProfitPct))
	}

	info, err := m.client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info != nil {
		takeProfit = RoundToPrecision(takeProfit, int32(info.PricePrecision))
	}

	m.log.WithFields(logrus.Fields{
		"symbol":      symbol,
		"side":        side,
		"take_profit": takeProfit,
	}).Info("Calculated take profit")
	return &takeProfit, nil
}

// UpdateBalanceForCompounding refreshes the balance baseline and
// reports whether a profit delta was compounded. The first call only
// establishes the baseline. Losses move the baseline down without
// triggering any action.
func (m *Manager) UpdateBalanceForCompounding(ctx context.Context) (bool, error) {
	if !m.cfg.AutoCompound {
		return false, nil
	}

	current, err := m.client.GetAccountBalance(ctx)
	if err != nil {
		return false, err
	}

	if m.lastKnownBalance == nil {
		m.seedBalance(current)
		return false, nil
	}

	return m.applyProfitDelta(current), nil
}
