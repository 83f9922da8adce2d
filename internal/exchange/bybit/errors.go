package bybit

import (
	"errors"
	"fmt"

	"github.com/ducminhle1904/futures-risk-bot/internal/exchange"
)

// Common Bybit error codes
const (
	errCodeInvalidAPIKey       = 10003
	errCodeInvalidSignature    = 10004
	errCodeInvalidTimestamp    = 10005
	errCodeRateLimitExceeded   = 10006
	errCodeOrderNotFound       = 110001
	errCodeInvalidOrderType    = 110004
	errCodeInsufficientBalance = 110007
	errCodeSymbolNotFound      = 110009
	errCodeInvalidQuantity     = 110020
	errCodeInvalidPrice        = 110021
	errCodeLeverageNotModified = 110043
)

func isRetryableCode(code int) bool {
	switch code {
	case errCodeRateLimitExceeded, 500, 502, 503, 504:
		return true
	}
	return false
}

// newAPIError converts a non-zero Bybit retCode into the shared error
// taxonomy.
func newAPIError(retCode int, retMsg string) *exchange.ExchangeError {
	code := fmt.Sprintf("BYBIT_%d", retCode)
	switch retCode {
	case errCodeInsufficientBalance:
		code = exchange.ErrInsufficientBalance.Code
	case errCodeSymbolNotFound:
		code = exchange.ErrInvalidSymbol.Code
	}

	return &exchange.ExchangeError{
		Code:        code,
		Message:     retMsg,
		Details:     fmt.Sprintf("retCode=%d", retCode),
		IsRetryable: isRetryableCode(retCode),
	}
}

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	var exErr *exchange.ExchangeError
	if errors.As(err, &exErr) {
		return exErr.IsRetryable
	}
	return false
}

// isLeverageNotModified reports whether the error is Bybit's rejection
// of a SetPositionLeverage call that matches the current leverage.
// The call is a no-op in that case, not a failure.
func isLeverageNotModified(err error) bool {
	var exErr *exchange.ExchangeError
	if errors.As(err, &exErr) {
		return exErr.Code == fmt.Sprintf("BYBIT_%d", errCodeLeverageNotModified)
	}
	return false
}
