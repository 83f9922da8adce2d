package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ducminhle1904/futures-risk-bot/internal/bot"
	"github.com/ducminhle1904/futures-risk-bot/internal/config"
	"github.com/ducminhle1904/futures-risk-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/futures-risk-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-risk-bot/internal/notifications"
	"github.com/ducminhle1904/futures-risk-bot/internal/risk"
	"github.com/ducminhle1904/futures-risk-bot/internal/strategy"
	"github.com/ducminhle1904/futures-risk-bot/pkg/reporting"
)

func main() {
	var (
		envFile   = flag.String("env", ".env", "Path to environment file")
		symbol    = flag.String("symbol", "", "Override trading symbol")
		reportDir = flag.String("report-dir", "reports", "Directory for session reports")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg := config.Load()
	if *symbol != "" {
		cfg.Trading.Symbol = *symbol
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"symbol":      cfg.Trading.Symbol,
		"timeframe":   cfg.Trading.Timeframe,
	}).Info("Starting futures risk bot")

	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
		Category:  cfg.Exchange.Category,
		QuoteCoin: cfg.Exchange.QuoteCoin,
	})
	log.WithField("exchange_env", client.GetEnvironment()).Info("Exchange client ready")

	strat, err := strategy.NewEMACross(cfg.Strategy)
	if err != nil {
		log.WithError(err).Fatal("Failed to build strategy")
	}

	riskManager := risk.NewManager(client, cfg.Risk, log)

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.Notifications.UseTelegram && cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
		log.Info("Telegram notifications enabled")
	} else {
		log.Info("Telegram notifications disabled")
	}

	healthChecker := monitoring.NewHealthChecker()
	go startMonitoringServers(cfg, healthChecker, log)

	tradingBot := bot.NewTradingBot(cfg, client, riskManager, strat, notifier, healthChecker, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- tradingBot.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutting down")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.WithError(err).Error("Trading loop exited")
		}
	}

	writeSessionReport(tradingBot, client, *reportDir, log)
	log.Info("Bot stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func startMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker, log *logrus.Logger) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		log.WithField("addr", addr).Info("Health server listening")
		if err := http.ListenAndServe(addr, healthMux); err != nil {
			log.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.MetricsPort)
		log.WithField("addr", addr).Info("Metrics server listening")
		if err := http.ListenAndServe(addr, monitoring.NewMetricsHandler()); err != nil {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
}

// writeSessionReport prints the session tables and exports the trade
// log as a workbook
func writeSessionReport(tradingBot *bot.TradingBot, client *bybit.Client, reportDir string, log *logrus.Logger) {
	reportCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	endBalance, err := client.GetAccountBalance(reportCtx)
	if err != nil {
		log.WithError(err).Warn("Could not read final balance for the session report")
		endBalance = tradingBot.StartBalance()
	}

	trades := tradingBot.Trades()
	summary := trades.Summarize(tradingBot.StartBalance(), endBalance, tradingBot.StartedAt())

	console := reporting.NewConsoleReporter()
	console.PrintTrades(trades)
	console.PrintSummary(summary)

	if trades.Len() == 0 {
		return
	}

	path := filepath.Join(reportDir, fmt.Sprintf("session_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := reporting.NewExcelReporter().WriteSessionXLSX(trades, summary, path); err != nil {
		log.WithError(err).Error("Failed to write session workbook")
		return
	}
	log.WithField("path", path).Info("Session workbook written")
}
