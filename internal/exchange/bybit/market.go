package bybit

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// intervalCodes maps human-readable timeframes to Bybit kline interval
// codes.
var intervalCodes = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"12h": "720",
	"1d":  "D",
	"1w":  "W",
}

type instrumentInfoResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol        string `json:"symbol"`
		Status        string `json:"status"`
		PriceFilter   struct {
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
		LotSizeFilter struct {
			QtyStep          string `json:"qtyStep"`
			MinOrderQty      string `json:"minOrderQty"`
			MaxOrderQty      string `json:"maxOrderQty"`
			MinNotionalValue string `json:"minNotionalValue"`
		} `json:"lotSizeFilter"`
	} `json:"list"`
}

type tickerResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

type klineResult struct {
	Symbol   string     `json:"symbol"`
	Category string     `json:"category"`
	List     [][]string `json:"list"`
}

// precisionFromStep derives the number of decimal places implied by a
// step or tick size. A step of 0.001 means precision 3.
func precisionFromStep(step decimal.Decimal) int {
	f, _ := step.Float64()
	if f <= 0 {
		return 0
	}
	p := int(math.Round(-math.Log10(f)))
	if p < 0 {
		return 0
	}
	return p
}

// GetSymbolInfo fetches the trading rules for a symbol. Instrument
// rules change rarely, so results are cached for the session. A nil
// result with a nil error means the symbol is unknown to the exchange.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (*exchange.SymbolInfo, error) {
	c.mu.RLock()
	if info, ok := c.infoCache[symbol]; ok {
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	response, err := c.withRetry(ctx, "get instrument info", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return nil, err
		}
		var instruments instrumentInfoResult
		if err := unwrapResult(result, &instruments); err != nil {
			return nil, err
		}
		return &instruments, nil
	})
	if err != nil {
		return nil, err
	}

	instruments := response.(*instrumentInfoResult)
	if len(instruments.List) == 0 {
		return nil, nil
	}

	inst := instruments.List[0]
	qtyStep := parseDecimal(inst.LotSizeFilter.QtyStep)
	tickSize := parseDecimal(inst.PriceFilter.TickSize)

	info := &exchange.SymbolInfo{
		Symbol:            inst.Symbol,
		QuantityPrecision: precisionFromStep(qtyStep),
		PricePrecision:    precisionFromStep(tickSize),
		MinQty:            parseDecimal(inst.LotSizeFilter.MinOrderQty),
		MaxQty:            parseDecimal(inst.LotSizeFilter.MaxOrderQty),
		MinNotional:       parseDecimal(inst.LotSizeFilter.MinNotionalValue),
	}

	c.mu.Lock()
	c.infoCache[symbol] = info
	c.mu.Unlock()

	return info, nil
}

// GetLatestPrice returns the last traded price for a symbol
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	response, err := c.withRetry(ctx, "get latest price", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return nil, err
		}
		var tickers tickerResult
		if err := unwrapResult(result, &tickers); err != nil {
			return nil, err
		}
		return &tickers, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	tickers := response.(*tickerResult)
	if len(tickers.List) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker data for %s", symbol)
	}

	return parseDecimal(tickers.List[0].LastPrice), nil
}

// GetKlines fetches candlestick data in chronological order
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Kline, error) {
	code, ok := intervalCodes[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported kline interval %q", interval)
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"interval": code,
		"limit":    limit,
	}

	response, err := c.withRetry(ctx, "get klines", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
		if err != nil {
			return nil, err
		}
		var klines klineResult
		if err := unwrapResult(result, &klines); err != nil {
			return nil, err
		}
		return &klines, nil
	})
	if err != nil {
		return nil, err
	}

	raw := response.(*klineResult)

	// Bybit returns newest first: [startTime, open, high, low, close, volume, turnover]
	klines := make([]exchange.Kline, 0, len(raw.List))
	for i := len(raw.List) - 1; i >= 0; i-- {
		item := raw.List[i]
		if len(item) < 6 {
			continue
		}
		klines = append(klines, exchange.Kline{
			OpenTime: parseTimestamp(item[0]),
			Open:     parseFloat64(item[1]),
			High:     parseFloat64(item[2]),
			Low:      parseFloat64(item[3]),
			Close:    parseFloat64(item[4]),
			Volume:   parseFloat64(item[5]),
		})
	}

	return klines, nil
}
