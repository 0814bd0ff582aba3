package ledger

import (
	"time"

	"streampay/internal/models"
)

// Config holds configuration for ledger operations
type Config struct {
	DefaultCurrency string
	HistoryLimit    int
	MaxHistoryLimit int
	GatewayTimeout  time.Duration
}

// TransferResult carries both sides of a committed transfer or donation.
type TransferResult struct {
	Debit  *models.Transaction `json:"debit"`
	Credit *models.Transaction `json:"credit"`
}

// TypeStats aggregates completed entries of one type.
type TypeStats struct {
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// Stats summarizes a wallet's full committed ledger by entry type.
type Stats struct {
	WalletID uint                 `json:"wallet_id"`
	ByType   map[string]TypeStats `json:"by_type"`
	Net      float64              `json:"net"`
}

// ReconciliationReport compares a wallet's stored balance against the sum
// of its committed ledger entries. A mismatch is a data-integrity alarm,
// not a normal error path.
type ReconciliationReport struct {
	WalletID   uint    `json:"wallet_id"`
	Balance    float64 `json:"balance"`
	LedgerSum  float64 `json:"ledger_sum"`
	Consistent bool    `json:"consistent"`
}

// PlatformSummary aggregates holdings across every wallet in one currency.
type PlatformSummary struct {
	Currency      string  `json:"currency"`
	TotalBalance  float64 `json:"total_balance"`
	ActiveWallets int64   `json:"active_wallets"`
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordTransaction(txType string, amount float64)
	RecordError(operation, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordTransaction(string, float64)            {}
func (n *NoopMetricsCollector) RecordError(string, string)                   {}
