package bybit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type walletBalanceResult struct {
	List []struct {
		AccountType        string `json:"accountType"`
		TotalEquity        string `json:"totalEquity"`
		TotalWalletBalance string `json:"totalWalletBalance"`
		Coin               []struct {
			Coin          string `json:"coin"`
			Equity        string `json:"equity"`
			WalletBalance string `json:"walletBalance"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"coin"`
	} `json:"list"`
}

// GetAccountBalance returns the wallet balance of the configured quote
// coin in the unified account. USDT for the standard linear perpetual
// setup.
func (c *Client) GetAccountBalance(ctx context.Context) (decimal.Decimal, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
		"coin":        c.quoteCoin,
	}

	response, err := c.withRetry(ctx, "get account balance", func() (interface{}, error) {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
		if err != nil {
			return nil, err
		}
		var wallet walletBalanceResult
		if err := unwrapResult(result, &wallet); err != nil {
			return nil, err
		}
		return &wallet, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	wallet := response.(*walletBalanceResult)
	if len(wallet.List) == 0 {
		return decimal.Zero, fmt.Errorf("no account data found")
	}

	for _, coin := range wallet.List[0].Coin {
		if coin.Coin == c.quoteCoin {
			return parseDecimal(coin.WalletBalance), nil
		}
	}

	return decimal.Zero, fmt.Errorf("coin %s not found in unified account", c.quoteCoin)
}
