package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streampay/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.WalletID == 0 {
		return ErrInvalidTransaction
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by reference: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrTransactionNotFound
	}
	return txs, nil
}

func (r *transactionRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by external id: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) GetByWallet(ctx context.Context, walletID uint, txType string, limit, offset int) ([]*models.Transaction, error) {
	query := r.db.WithContext(ctx).Where("wallet_id = ?", walletID)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}

	var txs []*models.Transaction
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) SumCompletedByWallet(ctx context.Context, walletID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("wallet_id = ? AND status = ?", walletID, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum wallet transactions: %w", err)
	}
	return total, nil
}

func (r *transactionRepository) SumByType(ctx context.Context, walletID uint) ([]TypeSum, error) {
	var sums []TypeSum
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("wallet_id = ? AND status = ?", walletID, models.TransactionStatusCompleted).
		Select("type, COUNT(*) as count, COALESCE(SUM(amount), 0) as total").
		Group("type").
		Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate wallet transactions: %w", err)
	}
	return sums, nil
}

// ClaimPending transitions an entry from pending to a terminal state.
// The status predicate makes the claim exclusive: a concurrent settlement
// that already finalized the entry leaves zero rows to update. Amount and
// fee columns are deliberately untouched.
func (r *transactionRepository) ClaimPending(ctx context.Context, id uint, status, failureReason string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": &now,
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotPending
	}
	return nil
}
