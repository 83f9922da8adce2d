package strategy

import (
	"time"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// Strategy defines the interface for trading strategies
type Strategy interface {
	// Evaluate analyzes the candle history and returns a trading decision
	Evaluate(klines []exchange.Kline) (*TradeDecision, error)

	// GetName returns the name of the strategy
	GetName() string

	// WarmupPeriod returns the minimum number of candles the strategy
	// needs before it can produce a decision
	WarmupPeriod() int
}

// TradeDecision represents a trading decision made by a strategy
type TradeDecision struct {
	Action    TradeAction
	Reason    string
	Timestamp time.Time
}

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Side converts the action into an order side, or "" for hold
func (ta TradeAction) Side() exchange.Side {
	switch ta {
	case ActionBuy:
		return exchange.SideBuy
	case ActionSell:
		return exchange.SideSell
	default:
		return ""
	}
}
