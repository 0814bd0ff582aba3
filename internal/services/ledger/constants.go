package ledger

import "time"

// Default configuration values
const (
	DefaultCurrency       = "USD"
	DefaultHistoryLimit   = 20
	MaxHistoryLimit       = 100
	DefaultGatewayTimeout = 30 * time.Second
)

// Cache keys and durations
const (
	historyCachePrefix = "wallet:history:"
	historyCacheTTL    = 2 * time.Minute
)
