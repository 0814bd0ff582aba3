package repositories

import (
	"context"
	"errors"

	"streampay/internal/models"
)

var (
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrInvalidTransaction    = errors.New("invalid transaction data")
	ErrTransactionNotPending = errors.New("transaction is not pending")
)

// TypeSum aggregates completed ledger entries of one type for a wallet.
type TypeSum struct {
	Type  string
	Count int64
	Total float64
}

// TransactionRepository is the persistence surface of the append-only
// ledger. Amounts and fees are never updated after creation; ClaimPending
// is the only mutation and touches status, processed_at and failure_reason
// only.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) ([]*models.Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	GetByWallet(ctx context.Context, walletID uint, txType string, limit, offset int) ([]*models.Transaction, error)
	SumCompletedByWallet(ctx context.Context, walletID uint) (float64, error)
	SumByType(ctx context.Context, walletID uint) ([]TypeSum, error)

	// ClaimPending transitions an entry out of the pending state. The
	// update is conditional on the entry still being pending, so exactly
	// one concurrent settlement can win the claim; the losers get
	// ErrTransactionNotPending.
	ClaimPending(ctx context.Context, id uint, status, failureReason string) error
}
