package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
	"github.com/ducminhle1904/futures-risk-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-risk-bot/internal/notifications"
	"github.com/ducminhle1904/futures-risk-bot/internal/risk"
	"github.com/ducminhle1904/futures-risk-bot/internal/strategy"
	"github.com/ducminhle1904/futures-risk-bot/pkg/reporting"
)

// klineBuffer is how many candles beyond the strategy warmup each tick
// fetches, so indicator seeds settle before the evaluated candles.
const klineBuffer = 50

// TradingBot drives the trading cycle: evaluate the strategy on fresh
// candles, manage the open position's protective orders, and open new
// positions sized by the risk manager.
type TradingBot struct {
	cfg      *config.Config
	client   exchange.Client
	risk     *risk.Manager
	strategy strategy.Strategy
	notifier notifications.Notifier
	health   *monitoring.HealthChecker
	trades   *reporting.TradeLog
	log      *logrus.Entry

	stopChan chan struct{}

	startBalance decimal.Decimal
	startedAt    time.Time
}

// NewTradingBot wires the bot from its collaborators
func NewTradingBot(
	cfg *config.Config,
	client exchange.Client,
	riskManager *risk.Manager,
	strat strategy.Strategy,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	log *logrus.Logger,
) *TradingBot {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	return &TradingBot{
		cfg:      cfg,
		client:   client,
		risk:     riskManager,
		strategy: strat,
		notifier: notifier,
		health:   health,
		trades:   reporting.NewTradeLog(),
		log:      log.WithField("module", "bot"),
		stopChan: make(chan struct{}),
	}
}

// Trades returns the session trade log
func (b *TradingBot) Trades() *reporting.TradeLog {
	return b.trades
}

// StartBalance returns the balance observed when the session started
func (b *TradingBot) StartBalance() decimal.Decimal {
	return b.startBalance
}

// StartedAt returns the session start time
func (b *TradingBot) StartedAt() time.Time {
	return b.startedAt
}

// Start prepares the symbol and runs the trading loop until the context
// is cancelled or Stop is called
func (b *TradingBot) Start(ctx context.Context) error {
	symbol := b.cfg.Trading.Symbol

	if err := b.client.InitializeSymbol(ctx, symbol, b.cfg.Trading.Leverage); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", symbol, err)
	}

	balance, err := b.client.GetAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read starting balance: %w", err)
	}
	b.startBalance = balance
	b.startedAt = time.Now()
	monitoring.UpdateBalance(balance.InexactFloat64())
	if b.health != nil {
		b.health.SetConnected(true)
	}

	b.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"leverage": b.cfg.Trading.Leverage,
		"balance":  balance.StringFixed(2),
		"strategy": b.strategy.GetName(),
	}).Info("Trading session started")

	ticker := time.NewTicker(b.cfg.Trading.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stopChan:
			return nil
		case <-ticker.C:
			if err := b.Tick(ctx); err != nil {
				b.log.WithError(err).Error("Trading cycle failed")
				monitoring.RecordError("trading_cycle")
				if b.health != nil {
					b.health.RecordError(err.Error())
				}
			}
		}
	}
}

// Stop signals the trading loop to exit
func (b *TradingBot) Stop() {
	close(b.stopChan)
}

// Tick runs one trading cycle
func (b *TradingBot) Tick(ctx context.Context) error {
	symbol := b.cfg.Trading.Symbol

	price, err := b.client.GetLatestPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}
	monitoring.UpdatePrice(symbol, price.InexactFloat64())
	if b.health != nil {
		b.health.RecordTick(price.InexactFloat64())
	}

	limit := b.strategy.WarmupPeriod() + klineBuffer
	klines, err := b.client.GetKlines(ctx, symbol, b.cfg.Trading.Timeframe, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch klines: %w", err)
	}

	decision, err := b.strategy.Evaluate(klines)
	if err != nil {
		return fmt.Errorf("strategy evaluation failed: %w", err)
	}
	monitoring.RecordSignal(b.strategy.GetName(), decision.Action.String())
	b.log.WithFields(logrus.Fields{
		"action": decision.Action.String(),
		"reason": decision.Reason,
		"price":  price,
	}).Debug("Strategy decision")

	position, err := b.client.GetPositionInfo(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch position: %w", err)
	}

	if position.IsOpen() {
		monitoring.UpdateOpenPositions(1)

		if decision.Action != strategy.ActionHold && decision.Action.Side() != position.Direction() {
			return b.closePosition(ctx, position, price, decision.Reason)
		}
		return b.maintainProtectiveOrders(ctx, position, price)
	}
	monitoring.UpdateOpenPositions(0)

	if decision.Action != strategy.ActionHold {
		if err := b.openPosition(ctx, decision, price); err != nil {
			return err
		}
	}

	return b.updateCompounding(ctx)
}

// openPosition sizes and submits a new position with its protective
// orders
func (b *TradingBot) openPosition(ctx context.Context, decision *strategy.TradeDecision, price decimal.Decimal) error {
	symbol := b.cfg.Trading.Symbol
	side := decision.Action.Side()

	ok, err := b.risk.ShouldOpenPosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("admission check failed: %w", err)
	}
	if !ok {
		return nil
	}

	stopLoss, err := b.risk.CalculateStopLoss(ctx, symbol, side, price)
	if err != nil {
		return fmt.Errorf("stop loss calculation failed: %w", err)
	}

	quantity, err := b.risk.CalculatePositionSize(ctx, symbol, side, price, stopLoss)
	if err != nil {
		return fmt.Errorf("position sizing failed: %w", err)
	}
	if quantity.IsZero() {
		b.log.WithField("symbol", symbol).Info("Position sizing declined the trade")
		return nil
	}

	takeProfit, err := b.risk.CalculateTakeProfit(ctx, symbol, side, price)
	if err != nil {
		return fmt.Errorf("take profit calculation failed: %w", err)
	}

	order, err := b.client.PlaceMarketOrder(ctx, symbol, side, quantity)
	if err != nil {
		monitoring.RecordError("order_placement")
		return fmt.Errorf("failed to open position: %w", err)
	}

	closeSide := side.Opposite()
	if stopLoss != nil {
		if _, err := b.client.PlaceStopLossOrder(ctx, symbol, closeSide, quantity, *stopLoss); err != nil {
			b.log.WithError(err).Error("Failed to place stop loss order")
			monitoring.RecordError("protective_order")
		}
	}
	if takeProfit != nil {
		if _, err := b.client.PlaceTakeProfitOrder(ctx, symbol, closeSide, quantity, *takeProfit); err != nil {
			b.log.WithError(err).Error("Failed to place take profit order")
			monitoring.RecordError("protective_order")
		}
	}

	b.trades.Append(reporting.TradeRecord{
		Time:       time.Now(),
		Symbol:     symbol,
		Side:       string(side),
		Quantity:   quantity,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Reason:     decision.Reason,
	})
	monitoring.RecordTrade(symbol, string(side), quantity.InexactFloat64())

	b.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"price":    price,
		"order_id": order.OrderID,
	}).Info("Opened position")

	if err := b.notifier.SendAlert("success", fmt.Sprintf("Opened %s %s %s @ %s", side, quantity, symbol, price)); err != nil {
		b.log.WithError(err).Warn("Failed to send notification")
	}
	return nil
}

// closePosition flattens the position with a market order after
// cancelling its protective orders
func (b *TradingBot) closePosition(ctx context.Context, position *exchange.PositionInfo, price decimal.Decimal, reason string) error {
	symbol := b.cfg.Trading.Symbol
	closeSide := position.Direction().Opposite()
	quantity := position.PositionAmount.Abs()

	if err := b.client.CancelAllOrders(ctx, symbol); err != nil {
		b.log.WithError(err).Error("Failed to cancel resting orders")
		monitoring.RecordError("order_cancellation")
	}

	if _, err := b.client.PlaceMarketOrder(ctx, symbol, closeSide, quantity); err != nil {
		monitoring.RecordError("order_placement")
		return fmt.Errorf("failed to close position: %w", err)
	}

	b.trades.Append(reporting.TradeRecord{
		Time:     time.Now(),
		Symbol:   symbol,
		Side:     string(closeSide),
		Quantity: quantity,
		Price:    price,
		Reason:   "closing on opposite signal: " + reason,
	})
	monitoring.RecordTrade(symbol, string(closeSide), quantity.InexactFloat64())

	b.log.WithFields(logrus.Fields{
		"symbol":   symbol,
		"side":     closeSide,
		"quantity": quantity,
		"price":    price,
	}).Info("Closed position on opposite signal")

	if err := b.notifier.SendAlert("warning", fmt.Sprintf("Closed %s position on opposite signal @ %s", symbol, price)); err != nil {
		b.log.WithError(err).Warn("Failed to send notification")
	}

	return b.updateCompounding(ctx)
}

// maintainProtectiveOrders tightens the trailing stop loss and take
// profit of the open position. Both resting orders are replaced
// whenever either target moves, so the pair stays consistent.
func (b *TradingBot) maintainProtectiveOrders(ctx context.Context, position *exchange.PositionInfo, price decimal.Decimal) error {
	symbol := b.cfg.Trading.Symbol
	side := position.Direction()

	newStop, err := b.risk.AdjustStopLossForTrailing(ctx, symbol, side, price, position)
	if err != nil {
		return fmt.Errorf("trailing stop adjustment failed: %w", err)
	}
	newTakeProfit, err := b.risk.AdjustTakeProfitForTrailing(ctx, symbol, side, price, position)
	if err != nil {
		return fmt.Errorf("trailing take profit adjustment failed: %w", err)
	}
	if newStop == nil && newTakeProfit == nil {
		return nil
	}

	// Carry over the targets that did not move from the resting orders
	// before replacing them.
	orders, err := b.client.GetOpenOrders(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch resting orders: %w", err)
	}
	stopPrice := newStop
	takeProfitPrice := newTakeProfit
	for i := range orders {
		o := orders[i]
		switch o.Type {
		case exchange.OrderTypeStopMarket:
			if stopPrice == nil {
				p := o.StopPrice
				stopPrice = &p
			}
		case exchange.OrderTypeTakeProfitMarket:
			if takeProfitPrice == nil {
				p := o.StopPrice
				takeProfitPrice = &p
			}
		}
	}

	if err := b.client.CancelAllOrders(ctx, symbol); err != nil {
		return fmt.Errorf("failed to cancel resting orders: %w", err)
	}

	closeSide := side.Opposite()
	quantity := position.PositionAmount.Abs()

	if stopPrice != nil {
		if _, err := b.client.PlaceStopLossOrder(ctx, symbol, closeSide, quantity, *stopPrice); err != nil {
			monitoring.RecordError("protective_order")
			return fmt.Errorf("failed to replace stop loss: %w", err)
		}
		if newStop != nil {
			monitoring.RecordTrailingAdjustment(symbol, "stop_loss")
			b.log.WithFields(logrus.Fields{
				"symbol": symbol,
				"stop":   newStop,
			}).Info("Trailing stop loss tightened")
		}
	}
	if takeProfitPrice != nil {
		if _, err := b.client.PlaceTakeProfitOrder(ctx, symbol, closeSide, quantity, *takeProfitPrice); err != nil {
			monitoring.RecordError("protective_order")
			return fmt.Errorf("failed to replace take profit: %w", err)
		}
		if newTakeProfit != nil {
			monitoring.RecordTrailingAdjustment(symbol, "take_profit")
			b.log.WithFields(logrus.Fields{
				"symbol":      symbol,
				"take_profit": newTakeProfit,
			}).Info("Trailing take profit advanced")
		}
	}

	return nil
}

// updateCompounding refreshes the balance baseline used for sizing
func (b *TradingBot) updateCompounding(ctx context.Context) error {
	compounded, err := b.risk.UpdateBalanceForCompounding(ctx)
	if err != nil {
		return fmt.Errorf("compounding update failed: %w", err)
	}
	if compounded {
		monitoring.RecordCompoundEvent()
		if err := b.notifier.SendAlert("info", "Realized profit folded into the sizing baseline"); err != nil {
			b.log.WithError(err).Warn("Failed to send notification")
		}
	}

	balance, err := b.client.GetAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh balance: %w", err)
	}
	monitoring.UpdateBalance(balance.InexactFloat64())
	return nil
}
