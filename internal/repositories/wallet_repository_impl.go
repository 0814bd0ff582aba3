package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streampay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	result := r.db.WithContext(ctx).Create(wallet)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", result.Error)
	}
	return nil
}

func (r *walletRepository) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// GetByIDForUpdate locks the wallet row until the surrounding transaction
// commits. Callers lock multiple wallets in ascending id order to avoid
// deadlock.
func (r *walletRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserAndCurrency(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uint) ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("currency ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get wallets for user: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) Update(ctx context.Context, wallet *models.Wallet) error {
	result := r.db.WithContext(ctx).Save(wallet)
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet: %w", result.Error)
	}
	return nil
}

func (r *walletRepository) SetActive(ctx context.Context, walletID uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) ExecuteInTransaction(ctx context.Context, fn func(WalletRepository, TransactionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx}, &transactionRepository{db: tx})
	})
}

func (r *walletRepository) GetTotalBalance(ctx context.Context, currency string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("currency = ?", currency).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get total balance: %w", err)
	}
	return total, nil
}

func (r *walletRepository) GetActiveWalletsCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active wallets: %w", err)
	}
	return count, nil
}

// isDuplicateKeyError recognizes the postgres unique violation so callers
// see ErrDuplicateWallet instead of a driver error.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value") ||
		strings.Contains(err.Error(), "SQLSTATE 23505")
}
