package reporting

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord captures one executed order together with the protective
// prices attached to it
type TradeRecord struct {
	Time       time.Time
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Reason     string
}

// TradeLog accumulates the trades of a session. Safe for concurrent
// use.
type TradeLog struct {
	mu     sync.Mutex
	trades []TradeRecord
}

// NewTradeLog creates an empty trade log
func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Append records a trade
func (l *TradeLog) Append(record TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, record)
}

// Trades returns a copy of the recorded trades in order
func (l *TradeLog) Trades() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len returns the number of recorded trades
func (l *TradeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}

// SessionSummary aggregates a trade log for end-of-session reporting
type SessionSummary struct {
	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
	TotalTrades  int
	BuyTrades    int
	SellTrades   int
	Started      time.Time
	Ended        time.Time
}

// Summarize builds a session summary from the log and the balance
// snapshot observed at session start and end
func (l *TradeLog) Summarize(startBalance, endBalance decimal.Decimal, started time.Time) SessionSummary {
	trades := l.Trades()

	summary := SessionSummary{
		StartBalance: startBalance,
		EndBalance:   endBalance,
		TotalTrades:  len(trades),
		Started:      started,
		Ended:        time.Now(),
	}
	for _, t := range trades {
		if t.Side == "BUY" {
			summary.BuyTrades++
		} else {
			summary.SellTrades++
		}
	}
	return summary
}

// PnL returns the absolute balance change over the session
func (s SessionSummary) PnL() decimal.Decimal {
	return s.EndBalance.Sub(s.StartBalance)
}

// ReturnPct returns the session return as a percentage of the starting
// balance, or zero when the start balance is unknown
func (s SessionSummary) ReturnPct() decimal.Decimal {
	if !s.StartBalance.IsPositive() {
		return decimal.Zero
	}
	return s.PnL().Div(s.StartBalance).Mul(decimal.NewFromInt(100))
}
