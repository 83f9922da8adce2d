package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order or position
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for a position opened with this side
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// SymbolInfo holds the trading rules the exchange enforces for a symbol.
// All order quantities and prices must be quantized against these before
// submission or the exchange rejects the order.
type SymbolInfo struct {
	Symbol            string          `json:"symbol"`
	QuantityPrecision int             `json:"quantity_precision"`
	PricePrecision    int             `json:"price_precision"`
	MinQty            decimal.Decimal `json:"min_qty"`
	MaxQty            decimal.Decimal `json:"max_qty"`
	MinNotional       decimal.Decimal `json:"min_notional"`
}

// PositionInfo represents the current position state for a symbol.
// PositionAmount is signed: positive = long, negative = short, zero = flat.
type PositionInfo struct {
	Symbol           string          `json:"symbol"`
	PositionAmount   decimal.Decimal `json:"position_amount"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	Leverage         int             `json:"leverage"`
	Isolated         bool            `json:"isolated"`
}

// IsOpen reports whether the position has any exposure
func (p *PositionInfo) IsOpen() bool {
	return p != nil && !p.PositionAmount.IsZero()
}

// Direction returns the side the position was opened with, or "" if flat
func (p *PositionInfo) Direction() Side {
	if p == nil || p.PositionAmount.IsZero() {
		return ""
	}
	if p.PositionAmount.IsNegative() {
		return SideSell
	}
	return SideBuy
}

// OpenOrder represents a resting order as reported by the exchange
type OpenOrder struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Type      OrderType       `json:"type"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	StopPrice decimal.Decimal `json:"stop_price"`
}

// Order represents an order acknowledgement returned by the exchange
type Order struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Type        OrderType       `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	Status      string          `json:"status"`
	CreatedTime time.Time       `json:"created_time"`
}

// Kline represents a single candlestick
type Kline struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Client defines the operations the bot needs from an exchange.
// Implementations own networking, auth and retry; callers treat a nil
// SymbolInfo/PositionInfo with a nil error as "not available".
type Client interface {
	// Account and market state
	GetAccountBalance(ctx context.Context) (decimal.Decimal, error)
	GetSymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error)
	GetPositionInfo(ctx context.Context, symbol string) (*PositionInfo, error)
	GetOpenPositions(ctx context.Context) ([]PositionInfo, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)

	// Trading
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (*Order, error)
	PlaceStopLossOrder(ctx context.Context, symbol string, side Side, quantity, stopPrice decimal.Decimal) (*Order, error)
	PlaceTakeProfitOrder(ctx context.Context, symbol string, side Side, quantity, stopPrice decimal.Decimal) (*Order, error)
	CancelAllOrders(ctx context.Context, symbol string) error

	// Session setup
	InitializeSymbol(ctx context.Context, symbol string, leverage int) error
}
