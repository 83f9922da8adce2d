package bybit

import (
	"sync"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// Client implements exchange.Client against the Bybit v5 unified
// trading API for linear perpetuals.
type Client struct {
	httpClient *bybit_api.Client
	category   string
	quoteCoin  string
	testnet    bool
	demo       bool

	mu        sync.RWMutex
	infoCache map[string]*exchange.SymbolInfo
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // Demo trading environment
	Category  string
	QuoteCoin string
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		// Demo trading environment (paper trading)
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	category := config.Category
	if category == "" {
		category = "linear"
	}
	quoteCoin := config.QuoteCoin
	if quoteCoin == "" {
		quoteCoin = "USDT"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		category:   category,
		quoteCoin:  quoteCoin,
		testnet:    config.Testnet,
		demo:       config.Demo,
		infoCache:  make(map[string]*exchange.SymbolInfo),
	}
}

var _ exchange.Client = (*Client)(nil)

// IsTestnet returns whether the client is configured for testnet
func (c *Client) IsTestnet() bool {
	return c.testnet
}

// IsDemo returns whether the client is configured for demo trading
func (c *Client) IsDemo() bool {
	return c.demo
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	} else {
		return "mainnet"
	}
}
