package exchange

import "errors"

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrRateUnavailable     = errors.New("exchange rate unavailable")
)
