package bybit

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// Bybit trigger directions for conditional orders
const (
	triggerRises = 1
	triggerFalls = 2
)

func toBybitSide(side exchange.Side) string {
	if side == exchange.SideBuy {
		return "Buy"
	}
	return "Sell"
}

func fromBybitSide(side string) exchange.Side {
	if side == "Buy" {
		return exchange.SideBuy
	}
	return exchange.SideSell
}

type orderAckResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type orderListResult struct {
	List []struct {
		OrderID       string `json:"orderId"`
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		OrderType     string `json:"orderType"`
		Qty           string `json:"qty"`
		Price         string `json:"price"`
		TriggerPrice  string `json:"triggerPrice"`
		StopOrderType string `json:"stopOrderType"`
		OrderStatus   string `json:"orderStatus"`
		CreatedTime   string `json:"createdTime"`
	} `json:"list"`
	NextPageCursor string `json:"nextPageCursor"`
}

type positionListResult struct {
	List []struct {
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Size          string `json:"size"`
		AvgPrice      string `json:"avgPrice"`
		UnrealisedPnl string `json:"unrealisedPnl"`
		Leverage      string `json:"leverage"`
		TradeMode     int    `json:"tradeMode"`
	} `json:"list"`
}

func (c *Client) placeOrder(ctx context.Context, operation string, params map[string]interface{}) (*orderAckResult, error) {
	response, err := c.withRetry(ctx, operation, func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
		if err != nil {
			return nil, err
		}
		var ack orderAckResult
		if err := unwrapResult(result, &ack); err != nil {
			return nil, err
		}
		return &ack, nil
	})
	if err != nil {
		return nil, err
	}
	return response.(*orderAckResult), nil
}

// PlaceMarketOrder submits a market order to open or close a position
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.Side, quantity decimal.Decimal) (*exchange.Order, error) {
	params := map[string]interface{}{
		"category":  c.category,
		"symbol":    symbol,
		"side":      toBybitSide(side),
		"orderType": "Market",
		"qty":       quantity.String(),
	}

	ack, err := c.placeOrder(ctx, "place market order", params)
	if err != nil {
		return nil, err
	}

	return &exchange.Order{
		OrderID:  ack.OrderID,
		Symbol:   symbol,
		Side:     side,
		Type:     exchange.OrderTypeMarket,
		Quantity: quantity,
		Status:   "New",
	}, nil
}

// PlaceStopLossOrder submits a reduce-only conditional market order that
// closes the position when the price moves against it. The side is the
// closing side: Sell for a long position, Buy for a short.
func (c *Client) PlaceStopLossOrder(ctx context.Context, symbol string, side exchange.Side, quantity, stopPrice decimal.Decimal) (*exchange.Order, error) {
	// A long closes with a Sell triggered by a falling price; a short
	// closes with a Buy triggered by a rising price.
	direction := triggerFalls
	if side == exchange.SideBuy {
		direction = triggerRises
	}

	params := map[string]interface{}{
		"category":         c.category,
		"symbol":           symbol,
		"side":             toBybitSide(side),
		"orderType":        "Market",
		"qty":              quantity.String(),
		"triggerPrice":     stopPrice.String(),
		"triggerDirection": direction,
		"triggerBy":        "LastPrice",
		"reduceOnly":       true,
	}

	ack, err := c.placeOrder(ctx, "place stop loss order", params)
	if err != nil {
		return nil, err
	}

	return &exchange.Order{
		OrderID:  ack.OrderID,
		Symbol:   symbol,
		Side:     side,
		Type:     exchange.OrderTypeStopMarket,
		Quantity: quantity,
		Price:    stopPrice,
		Status:   "New",
	}, nil
}

// PlaceTakeProfitOrder submits a reduce-only conditional market order
// that closes the position once the price reaches the profit target.
// The side is the closing side.
func (c *Client) PlaceTakeProfitOrder(ctx context.Context, symbol string, side exchange.Side, quantity, stopPrice decimal.Decimal) (*exchange.Order, error) {
	// Mirror of the stop loss: a long takes profit on a rising price.
	direction := triggerRises
	if side == exchange.SideBuy {
		direction = triggerFalls
	}

	params := map[string]interface{}{
		"category":         c.category,
		"symbol":           symbol,
		"side":             toBybitSide(side),
		"orderType":        "Market",
		"qty":              quantity.String(),
		"triggerPrice":     stopPrice.String(),
		"triggerDirection": direction,
		"triggerBy":        "LastPrice",
		"reduceOnly":       true,
	}

	ack, err := c.placeOrder(ctx, "place take profit order", params)
	if err != nil {
		return nil, err
	}

	return &exchange.Order{
		OrderID:  ack.OrderID,
		Symbol:   symbol,
		Side:     side,
		Type:     exchange.OrderTypeTakeProfitMarket,
		Quantity: quantity,
		Price:    stopPrice,
		Status:   "New",
	}, nil
}

// normalizeOrderType maps Bybit's order fields onto the shared order
// type taxonomy. A conditional market order closing a long on a price
// rise is a take profit; closing it on a fall is a stop loss.
func normalizeOrderType(orderType, stopOrderType, triggerPrice, side string) exchange.OrderType {
	if triggerPrice == "" || triggerPrice == "0" {
		if orderType == "Limit" {
			return exchange.OrderTypeLimit
		}
		return exchange.OrderTypeMarket
	}

	switch stopOrderType {
	case "TakeProfit", "PartialTakeProfit":
		return exchange.OrderTypeTakeProfitMarket
	case "StopLoss", "PartialStopLoss", "Stop":
		return exchange.OrderTypeStopMarket
	}

	// Fall back on the closing side: a Sell above the market takes
	// profit on a long, a Sell below stops it out.
	if side == "Sell" {
		return exchange.OrderTypeTakeProfitMarket
	}
	return exchange.OrderTypeStopMarket
}

// GetOpenOrders returns the resting orders for a symbol, including
// untriggered conditional orders
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	response, err := c.withRetry(ctx, "get open orders", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
		if err != nil {
			return nil, err
		}
		var list orderListResult
		if err := unwrapResult(result, &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}

	list := response.(*orderListResult)
	orders := make([]exchange.OpenOrder, 0, len(list.List))
	for _, o := range list.List {
		orders = append(orders, exchange.OpenOrder{
			OrderID:   o.OrderID,
			Symbol:    o.Symbol,
			Type:      normalizeOrderType(o.OrderType, o.StopOrderType, o.TriggerPrice, o.Side),
			Side:      fromBybitSide(o.Side),
			Quantity:  parseDecimal(o.Qty),
			Price:     parseDecimal(o.Price),
			StopPrice: parseDecimal(o.TriggerPrice),
		})
	}

	return orders, nil
}

func (c *Client) getPositions(ctx context.Context, params map[string]interface{}) ([]exchange.PositionInfo, error) {
	response, err := c.withRetry(ctx, "get positions", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
		if err != nil {
			return nil, err
		}
		var list positionListResult
		if err := unwrapResult(result, &list); err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}

	list := response.(*positionListResult)
	positions := make([]exchange.PositionInfo, 0, len(list.List))
	for _, p := range list.List {
		size := parseDecimal(p.Size)
		if p.Side == "Sell" {
			size = size.Neg()
		}
		leverage, _ := strconv.Atoi(p.Leverage)
		positions = append(positions, exchange.PositionInfo{
			Symbol:           p.Symbol,
			PositionAmount:   size,
			EntryPrice:       parseDecimal(p.AvgPrice),
			UnrealizedProfit: parseDecimal(p.UnrealisedPnl),
			Leverage:         leverage,
			// tradeMode 1 is isolated margin
			Isolated: p.TradeMode == 1,
		})
	}

	return positions, nil
}

// GetPositionInfo returns the position state for a symbol. A flat
// symbol yields a position with zero amount, not an error.
func (c *Client) GetPositionInfo(ctx context.Context, symbol string) (*exchange.PositionInfo, error) {
	positions, err := c.getPositions(ctx, map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	})
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return &exchange.PositionInfo{Symbol: symbol}, nil
	}
	return &positions[0], nil
}

// GetOpenPositions returns every position with exposure across the
// account's linear contracts
func (c *Client) GetOpenPositions(ctx context.Context) ([]exchange.PositionInfo, error) {
	positions, err := c.getPositions(ctx, map[string]interface{}{
		"category":   c.category,
		"settleCoin": c.quoteCoin,
	})
	if err != nil {
		return nil, err
	}

	open := positions[:0]
	for _, p := range positions {
		if !p.PositionAmount.IsZero() {
			open = append(open, p)
		}
	}
	return open, nil
}

// CancelAllOrders cancels every resting order for a symbol, conditional
// orders included
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	_, err := c.withRetry(ctx, "cancel all orders", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelAllOrders(ctx)
		if err != nil {
			return nil, err
		}
		var ack struct{}
		if err := unwrapResult(result, &ack); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// InitializeSymbol prepares a symbol for the trading session by setting
// its leverage. Bybit rejects a leverage call that matches the current
// setting; that rejection is treated as success.
func (c *Client) InitializeSymbol(ctx context.Context, symbol string, leverage int) error {
	lv := strconv.Itoa(leverage)
	params := map[string]interface{}{
		"category":     c.category,
		"symbol":       symbol,
		"buyLeverage":  lv,
		"sellLeverage": lv,
	}

	_, err := c.withRetry(ctx, "set leverage", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
		if err != nil {
			return nil, err
		}
		var ack struct{}
		if err := unwrapResult(result, &ack); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil && !isLeverageNotModified(err) {
		return err
	}
	return nil
}
