package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"streampay/internal/models"
	"streampay/internal/repositories"
)

func (s *service) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	if wallet, err := s.cache.GetWallet(ctx, walletID); err == nil {
		return wallet, nil
	}

	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	s.cache.SetWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, walletID uint) (float64, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// GetHistory returns the wallet's ledger entries, newest first. The first
// page with the default size is cache-served.
func (s *service) GetHistory(ctx context.Context, walletID uint, limit, offset int) ([]*models.Transaction, error) {
	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	cacheKey := fmt.Sprintf("%s%d", historyCachePrefix, walletID)
	cacheable := offset == 0 && limit == s.config.HistoryLimit
	if cacheable {
		var cached []*models.Transaction
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	history, err := s.ledger.GetByWallet(ctx, walletID, "", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, history, historyCacheTTL); err != nil {
			log.Printf("failed to cache transaction history: %v", err)
		}
	}

	return history, nil
}

func (s *service) GetTransactionsByType(ctx context.Context, walletID uint, txType string, limit, offset int) ([]*models.Transaction, error) {
	limit = s.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	txs, err := s.ledger.GetByWallet(ctx, walletID, txType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by type: %w", err)
	}
	return txs, nil
}

// GetTransactionStats aggregates signed sums by type over the wallet's
// full committed ledger.
func (s *service) GetTransactionStats(ctx context.Context, walletID uint) (*Stats, error) {
	sums, err := s.ledger.SumByType(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction stats: %w", err)
	}

	stats := &Stats{
		WalletID: walletID,
		ByType:   make(map[string]TypeStats, len(sums)),
	}
	for _, sum := range sums {
		stats.ByType[sum.Type] = TypeStats{Count: sum.Count, Total: sum.Total}
		stats.Net += sum.Total
	}
	return stats, nil
}

// CheckConsistency verifies the balance-ledger invariant for one wallet.
func (s *service) CheckConsistency(ctx context.Context, walletID uint) (*ReconciliationReport, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	sum, err := s.ledger.SumCompletedByWallet(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return &ReconciliationReport{
		WalletID:   walletID,
		Balance:    wallet.Balance,
		LedgerSum:  sum,
		Consistent: math.Abs(wallet.Balance-sum) < 1e-6,
	}, nil
}

// GetPlatformSummary totals holdings across every wallet in one currency.
// An empty currency defaults to the platform currency.
func (s *service) GetPlatformSummary(ctx context.Context, currency string) (*PlatformSummary, error) {
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	total, err := s.wallets.GetTotalBalance(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to total wallet balances: %w", err)
	}
	active, err := s.wallets.GetActiveWalletsCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active wallets: %w", err)
	}

	return &PlatformSummary{
		Currency:      currency,
		TotalBalance:  total,
		ActiveWallets: active,
	}, nil
}

func (s *service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.HistoryLimit
	}
	if limit > s.config.MaxHistoryLimit {
		return s.config.MaxHistoryLimit
	}
	return limit
}
