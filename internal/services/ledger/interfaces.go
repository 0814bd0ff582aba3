package ledger

import (
	"context"

	"streampay/internal/models"
	"streampay/internal/services/exchange"
	"streampay/internal/services/gateway"
)

// Service is the sole authority for mutating wallet balances and creating
// ledger entries. Every mutating operation commits its balance change and
// ledger entr(ies) as one atomic unit.
type Service interface {
	// Wallet lifecycle
	CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	DeactivateWallet(ctx context.Context, walletID uint) error
	ReactivateWallet(ctx context.Context, walletID uint) error

	// Balance-affecting operations
	Deposit(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, error)
	Withdraw(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, error)
	Transfer(ctx context.Context, fromWalletID, toWalletID uint, amount float64, description string) (*TransferResult, error)
	TransferCrossCurrency(ctx context.Context, fromWalletID, toWalletID uint, amount float64, description string) (*TransferResult, error)
	Donate(ctx context.Context, fromWalletID, toUserID uint, amount float64, description string) (*TransferResult, error)
	ChargeFee(ctx context.Context, walletID uint, amount float64, description string, feeType string) (*models.Transaction, error)
	Refund(ctx context.Context, walletID uint, externalRef string, amount float64, reason string) (*models.Transaction, error)

	// Gateway-settled paths
	DepositViaGateway(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, *gateway.PaymentIntent, error)
	WithdrawViaGateway(ctx context.Context, walletID uint, amount float64, destination string) (*models.Transaction, error)
	ConfirmGatewayTransaction(ctx context.Context, externalID string, succeeded bool, failureReason string) (*models.Transaction, error)

	// Read-only projections
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, walletID uint) (float64, error)
	GetHistory(ctx context.Context, walletID uint, limit, offset int) ([]*models.Transaction, error)
	GetTransactionsByType(ctx context.Context, walletID uint, txType string, limit, offset int) ([]*models.Transaction, error)
	GetTransactionStats(ctx context.Context, walletID uint) (*Stats, error)
	GetPlatformSummary(ctx context.Context, currency string) (*PlatformSummary, error)
	CheckConsistency(ctx context.Context, walletID uint) (*ReconciliationReport, error)
}

// RateProvider is the slice of the exchange service the ledger needs for
// cross-currency transfers.
type RateProvider interface {
	Convert(ctx context.Context, amount float64, from, to string) (exchange.Conversion, error)
}
