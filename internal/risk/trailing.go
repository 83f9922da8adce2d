package risk

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// AdjustStopLossForTrailing recomputes the stop loss from the current
// price and returns the new stop when it tightens protection: up for a
// long, down for a short. A nil return means the existing stop order
// must be left untouched.
func (m *Manager) AdjustStopLossForTrailing(ctx context.Context, symbol string, side exchange.Side, currentPrice decimal.Decimal, position *exchange.PositionInfo) (*decimal.Decimal, error) {
	if !m.cfg.TrailingStop {
		return nil, nil
	}

	if position == nil {
		var err error
		position, err = m.client.GetPositionInfo(ctx, symbol)
		if err != nil {
			return nil, err
		}
	}
	if !position.IsOpen() {
		return nil, nil
	}

	var newStop decimal.Decimal
	if side == exchange.SideBuy {
		newStop = currentPrice.Mul(one.Sub(m.cfg.TrailingStopPct))
	} else {
		newStop = currentPrice.Mul(one.Add(m.cfg.TrailingStopPct))
	}

	currentStop, err := m.CalculateStopLoss(ctx, symbol, side, position.EntryPrice)
	if err != nil {
		return nil, err
	}
	if currentStop != nil {
		// The stop may only ever tighten. A transient dip must not
		// loosen protection that earlier price action earned.
		if side == exchange.SideBuy && newStop.LessThanOrEqual(*currentStop) {
			return nil, nil
		}
		if side == exchange.SideSell && newStop.GreaterThanOrEqual(*currentStop) {
			return nil, nil
		}
	}

	info, err := m.client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info == nil {
		m.log.WithField("symbol", symbol).Error("Symbol info unavailable, skipping trailing stop adjustment")
		return nil, nil
	}
	rounded := RoundToPrecision(newStop, int32(info.PricePrecision))

	m.log.WithFields(logrus.Fields{
		"symbol": symbol,
		"side":   side,
		"stop":   rounded,
	}).Info("Adjusted trailing stop loss")
	return &rounded, nil
}

// AdjustTakeProfitForTrailing ratchets the take-profit target as the
// price moves favorably: higher for a long, lower for a short. The
// candidate target is quantized toward the conservative side (floor
// for longs, ceiling for shorts) and compared against the take-profit
// order currently resting on the exchange; with no such order the new
// target is returned unconditionally.
func (m *Manager) AdjustTakeProfitForTrailing(ctx context.Context, symbol string, side exchange.Side, currentPrice decimal.Decimal, position *exchange.PositionInfo) (*decimal.Decimal, error) {
	if !m.cfg.UseTakeProfit || !m.cfg.TrailingTakeProfit {
		return nil, nil
	}
	if position == nil || !position.EntryPrice.IsPositive() {
		return nil, nil
	}

	info, err := m.client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if info == nil {
		m.log.WithField("symbol", symbol).Error("Symbol info unavailable, skipping trailing take profit adjustment")
		return nil, nil
	}
	precision := int32(info.PricePrecision)

	var newTakeProfit decimal.Decimal
	var closeSide exchange.Side
	if side == exchange.SideBuy {
		newTakeProfit = FloorToPrecision(currentPrice.Mul(one.Add(m.cfg.TrailingTakeProfitPct)), precision)
		closeSide = exchange.SideSell
	} else {
		newTakeProfit = CeilToPrecision(currentPrice.Mul(one.Sub(m.cfg.TrailingTakeProfitPct)), precision)
		closeSide = exchange.SideBuy
	}

	orders, err := m.client.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	var existing *decimal.Decimal
	for i := range orders {
		if orders[i].Type == exchange.OrderTypeTakeProfitMarket && orders[i].Side == closeSide {
			existing = &orders[i].StopPrice
			break
		}
	}

	improved := existing == nil ||
		(side == exchange.SideBuy && newTakeProfit.GreaterThan(*existing)) ||
		(side == exchange.SideSell && newTakeProfit.LessThan(*existing))
	if !improved {
		return nil, nil
	}

	fields := logrus.Fields{
		"symbol":      symbol,
		"side":        side,
		"take_profit": newTakeProfit,
	}
	if existing != nil {
		fields["previous"] = *existing
	}
	m.log.WithFields(fields).Info("Adjusted trailing take profit")
	return &newTakeProfit, nil
}
