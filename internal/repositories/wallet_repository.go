package repositories

import (
	"context"
	"errors"

	"streampay/internal/models"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrDuplicateWallet   = errors.New("wallet already exists for user and currency")
	ErrInvalidWalletData = errors.New("invalid wallet data")
)

// WalletRepository defines the interface for wallet-related database
// operations. Mutating methods are expected to run inside
// ExecuteInTransaction; GetByIDForUpdate takes a row lock that survives
// until that transaction commits.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id uint) (*models.Wallet, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserAndCurrency(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) ([]*models.Wallet, error)
	Update(ctx context.Context, wallet *models.Wallet) error
	SetActive(ctx context.Context, walletID uint, active bool) error

	// ExecuteInTransaction runs fn with repository views bound to a single
	// database transaction. Everything fn writes commits or rolls back as
	// one unit.
	ExecuteInTransaction(ctx context.Context, fn func(wallets WalletRepository, ledger TransactionRepository) error) error

	// Analytics
	GetTotalBalance(ctx context.Context, currency string) (float64, error)
	GetActiveWalletsCount(ctx context.Context) (int64, error)
}
