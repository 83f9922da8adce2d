package strategy

import (
	"errors"
	"fmt"

	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
	"github.com/ducminhle1904/futures-risk-bot/internal/indicators"
)

// EMACross trades exponential moving average crossovers confirmed by
// RSI. A fast EMA crossing above the slow EMA opens a long unless the
// market is already overbought; a cross below opens a short unless it
// is already oversold.
type EMACross struct {
	fastEMA *indicators.EMA
	slowEMA *indicators.EMA
	rsi     *indicators.RSI

	overbought float64
	oversold   float64
}

// NewEMACross creates the crossover strategy from its configuration
func NewEMACross(cfg config.StrategyConfig) (*EMACross, error) {
	if cfg.FastEMA <= 0 || cfg.SlowEMA <= 0 || cfg.RSIPeriod <= 0 {
		return nil, errors.New("indicator periods must be positive")
	}
	if cfg.FastEMA >= cfg.SlowEMA {
		return nil, fmt.Errorf("fast EMA period %d must be shorter than slow EMA period %d", cfg.FastEMA, cfg.SlowEMA)
	}

	return &EMACross{
		fastEMA:    indicators.NewEMA(cfg.FastEMA),
		slowEMA:    indicators.NewEMA(cfg.SlowEMA),
		rsi:        indicators.NewRSI(cfg.RSIPeriod),
		overbought: cfg.RSIOverbought,
		oversold:   cfg.RSIOversold,
	}, nil
}

// GetName returns the name of the strategy
func (s *EMACross) GetName() string {
	return "ema_cross"
}

// WarmupPeriod returns the minimum number of candles the strategy
// needs before it can produce a decision
func (s *EMACross) WarmupPeriod() int {
	warmup := s.slowEMA.Period() + 1
	if rsiWarmup := s.rsi.Period() + 1; rsiWarmup > warmup {
		warmup = rsiWarmup
	}
	return warmup
}

// Evaluate analyzes the candle history and returns a trading decision
func (s *EMACross) Evaluate(klines []exchange.Kline) (*TradeDecision, error) {
	if len(klines) < s.WarmupPeriod() {
		return nil, errors.New("insufficient data for crossover evaluation")
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	fast, err := s.fastEMA.Series(closes)
	if err != nil {
		return nil, err
	}
	slow, err := s.slowEMA.Series(closes)
	if err != nil {
		return nil, err
	}

	fastCur, fastPrev := fast[len(fast)-1], fast[len(fast)-2]
	slowCur, slowPrev := slow[len(slow)-1], slow[len(slow)-2]

	rsi, err := s.rsi.Calculate(closes)
	if err != nil {
		return nil, err
	}

	decision := &TradeDecision{
		Action:    ActionHold,
		Timestamp: klines[len(klines)-1].OpenTime,
	}

	crossedUp := fastPrev <= slowPrev && fastCur > slowCur
	crossedDown := fastPrev >= slowPrev && fastCur < slowCur

	switch {
	case crossedUp && rsi < s.overbought:
		decision.Action = ActionBuy
		decision.Reason = fmt.Sprintf("fast EMA crossed above slow EMA, RSI %.1f", rsi)
	case crossedUp:
		decision.Reason = fmt.Sprintf("bullish cross rejected, RSI %.1f overbought", rsi)
	case crossedDown && rsi > s.oversold:
		decision.Action = ActionSell
		decision.Reason = fmt.Sprintf("fast EMA crossed below slow EMA, RSI %.1f", rsi)
	case crossedDown:
		decision.Reason = fmt.Sprintf("bearish cross rejected, RSI %.1f oversold", rsi)
	default:
		decision.Reason = "no crossover"
	}

	return decision, nil
}
