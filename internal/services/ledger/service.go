package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/services/fee"
	"streampay/internal/services/gateway"

	"github.com/google/uuid"
)

type service struct {
	wallets repositories.WalletRepository
	ledger  repositories.TransactionRepository
	cache   repositories.CacheRepository
	fees    *fee.Calculator
	rates   RateProvider
	gateway gateway.PaymentGateway
	config  Config
	metrics MetricsCollector
}

// NewService creates a new wallet ledger service. The gateway may be nil
// when gateway-settled paths are not wired; rates may be nil when
// cross-currency transfers are not needed.
func NewService(
	wallets repositories.WalletRepository,
	ledgerRepo repositories.TransactionRepository,
	cache repositories.CacheRepository,
	fees *fee.Calculator,
	rates RateProvider,
	gw gateway.PaymentGateway,
	config Config,
	metrics MetricsCollector,
) Service {
	if wallets == nil {
		panic("wallet repository is required")
	}
	if ledgerRepo == nil {
		panic("transaction repository is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	if fees == nil {
		panic("fee calculator is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.HistoryLimit == 0 {
		config.HistoryLimit = DefaultHistoryLimit
	}
	if config.MaxHistoryLimit == 0 {
		config.MaxHistoryLimit = MaxHistoryLimit
	}
	if config.GatewayTimeout == 0 {
		config.GatewayTimeout = DefaultGatewayTimeout
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		wallets: wallets,
		ledger:  ledgerRepo,
		cache:   cache,
		fees:    fees,
		rates:   rates,
		gateway: gw,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	wallet := &models.Wallet{
		UserID:   userID,
		Currency: currency,
		Balance:  0,
		IsActive: true,
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return nil, ErrWalletExists
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	s.cache.SetWallet(ctx, wallet)
	return wallet, nil
}

func (s *service) Deposit(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, error) {
	if amount <= 0 {
		s.metrics.RecordError("deposit", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var entry *models.Transaction
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		wallet, err := s.lockActiveWallet(ctx, wallets, walletID)
		if err != nil {
			return err
		}

		feeAmount := s.fees.Calculate(amount, fee.TypeDeposit)
		net := amount - feeAmount
		if net <= 0 {
			return ErrInvalidAmount
		}

		now := time.Now()
		entry = &models.Transaction{
			WalletID:    wallet.ID,
			Type:        models.TransactionTypeDeposit,
			Amount:      net,
			FeeAmount:   feeAmount,
			Currency:    wallet.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: description,
			Reference:   uuid.NewString(),
			ProcessedAt: &now,
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return err
		}

		wallet.Balance += net
		wallet.TotalDeposits += net
		wallet.TotalFees += feeAmount
		wallet.LastTransactionAt = &now
		return wallets.Update(ctx, wallet)
	})
	if err != nil {
		s.metrics.RecordError("deposit", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.TransactionTypeDeposit, entry.Amount)
	return entry, nil
}

func (s *service) Withdraw(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, error) {
	if amount <= 0 {
		s.metrics.RecordError("withdraw", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var entry *models.Transaction
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		wallet, err := s.lockActiveWallet(ctx, wallets, walletID)
		if err != nil {
			return err
		}

		feeAmount := s.fees.Calculate(amount, fee.TypeWithdrawal)
		total := amount + feeAmount
		if wallet.Balance < total {
			return ErrInsufficientFunds
		}

		now := time.Now()
		ref := uuid.NewString()
		entry = &models.Transaction{
			WalletID:    wallet.ID,
			Type:        models.TransactionTypeWithdrawal,
			Amount:      -amount,
			FeeAmount:   feeAmount,
			Currency:    wallet.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: description,
			Reference:   ref,
			ProcessedAt: &now,
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return err
		}

		// The fee is its own linked entry so the ledger sum matches the
		// balance delta exactly.
		if feeAmount > 0 {
			feeEntry := &models.Transaction{
				WalletID:    wallet.ID,
				Type:        models.TransactionTypeFee,
				Amount:      -feeAmount,
				FeeAmount:   feeAmount,
				Currency:    wallet.Currency,
				Status:      models.TransactionStatusCompleted,
				Description: "withdrawal fee",
				Reference:   ref,
				ProcessedAt: &now,
			}
			if err := ledger.Create(ctx, feeEntry); err != nil {
				return err
			}
		}

		wallet.Balance -= total
		wallet.TotalWithdrawals += amount
		wallet.TotalFees += feeAmount
		wallet.LastTransactionAt = &now
		return wallets.Update(ctx, wallet)
	})
	if err != nil {
		s.metrics.RecordError("withdraw", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.TransactionTypeWithdrawal, amount)
	return entry, nil
}

func (s *service) ChargeFee(ctx context.Context, walletID uint, amount float64, description string, feeType string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ft := fee.Type(feeType)
	if feeType == "" {
		ft = fee.TypeTransaction
	}

	var entry *models.Transaction
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		wallet, err := s.lockActiveWallet(ctx, wallets, walletID)
		if err != nil {
			return err
		}

		feeAmount := s.fees.Calculate(amount, ft)
		if feeAmount <= 0 {
			return ErrInvalidAmount
		}
		if wallet.Balance < feeAmount {
			return ErrInsufficientFunds
		}

		now := time.Now()
		entry = &models.Transaction{
			WalletID:    wallet.ID,
			Type:        models.TransactionTypeFee,
			Amount:      -feeAmount,
			FeeAmount:   feeAmount,
			Currency:    wallet.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: description,
			Reference:   uuid.NewString(),
			Metadata: models.NewJSON(map[string]interface{}{
				"fee_type":    string(ft),
				"base_amount": amount,
			}),
			ProcessedAt: &now,
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return err
		}

		wallet.Balance -= feeAmount
		wallet.TotalFees += feeAmount
		wallet.LastTransactionAt = &now
		return wallets.Update(ctx, wallet)
	})
	if err != nil {
		s.metrics.RecordError("charge_fee", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.TransactionTypeFee, entry.FeeAmount)
	return entry, nil
}

func (s *service) Refund(ctx context.Context, walletID uint, externalRef string, amount float64, reason string) (*models.Transaction, error) {
	if externalRef == "" {
		return nil, ErrTransactionNotFound
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.Transaction
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		wallet, err := s.lockActiveWallet(ctx, wallets, walletID)
		if err != nil {
			return err
		}

		original, err := ledger.GetByExternalID(ctx, externalRef)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if original.WalletID != wallet.ID || original.Status != models.TransactionStatusCompleted {
			return ErrTransactionNotFound
		}

		originalAmount := original.Amount
		if originalAmount < 0 {
			originalAmount = -originalAmount
		}

		// Refund entries share the original's reference, so summing the
		// group caps repeated refunds at the original amount in total.
		linked, err := ledger.GetByReference(ctx, original.Reference)
		if err != nil {
			return err
		}
		var refunded float64
		for _, tx := range linked {
			if tx.Type == models.TransactionTypeRefund && tx.Status == models.TransactionStatusCompleted {
				refunded += tx.Amount
			}
		}
		remaining := originalAmount - refunded

		refund := amount
		if refund == 0 {
			refund = remaining
		}
		if refund <= 0 || refund > remaining {
			return ErrInvalidAmount
		}

		now := time.Now()
		entry = &models.Transaction{
			WalletID:    wallet.ID,
			Type:        models.TransactionTypeRefund,
			Amount:      refund,
			Currency:    wallet.Currency,
			Status:      models.TransactionStatusCompleted,
			Description: reason,
			Reference:   original.Reference,
			Metadata: models.NewJSON(map[string]interface{}{
				"original_transaction_id": original.ID,
				"original_external_id":    externalRef,
			}),
			ProcessedAt: &now,
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return err
		}

		wallet.Balance += refund
		wallet.LastTransactionAt = &now
		return wallets.Update(ctx, wallet)
	})
	if err != nil {
		s.metrics.RecordError("refund", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.TransactionTypeRefund, entry.Amount)
	return entry, nil
}

func (s *service) DeactivateWallet(ctx context.Context, walletID uint) error {
	return s.setActive(ctx, walletID, false)
}

func (s *service) ReactivateWallet(ctx context.Context, walletID uint) error {
	return s.setActive(ctx, walletID, true)
}

func (s *service) setActive(ctx context.Context, walletID uint, active bool) error {
	if err := s.wallets.SetActive(ctx, walletID, active); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return ErrWalletNotFound
		}
		return err
	}
	s.invalidate(ctx, walletID)
	return nil
}

// lockActiveWallet fetches a wallet under a row lock and verifies it can
// take part in a balance mutation.
func (s *service) lockActiveWallet(ctx context.Context, wallets repositories.WalletRepository, walletID uint) (*models.Wallet, error) {
	wallet, err := wallets.GetByIDForUpdate(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if !wallet.IsActive {
		return nil, ErrWalletInactive
	}
	return wallet, nil
}

// lockWalletPair locks two wallets in ascending id order regardless of
// transfer direction, so concurrent opposite transfers cannot deadlock.
func (s *service) lockWalletPair(ctx context.Context, wallets repositories.WalletRepository, firstID, secondID uint) (*models.Wallet, *models.Wallet, error) {
	a, b := firstID, secondID
	if b < a {
		a, b = b, a
	}

	lockedA, err := s.lockActiveWallet(ctx, wallets, a)
	if err != nil {
		return nil, nil, err
	}
	lockedB, err := s.lockActiveWallet(ctx, wallets, b)
	if err != nil {
		return nil, nil, err
	}

	if lockedA.ID == firstID {
		return lockedA, lockedB, nil
	}
	return lockedB, lockedA, nil
}

func (s *service) invalidate(ctx context.Context, walletIDs ...uint) {
	for _, id := range walletIDs {
		if err := s.cache.DeleteWallet(ctx, id); err != nil {
			log.Printf("failed to invalidate wallet cache %d: %v", id, err)
		}
		if err := s.cache.Delete(ctx, fmt.Sprintf("%s%d", historyCachePrefix, id)); err != nil {
			log.Printf("failed to invalidate history cache %d: %v", id, err)
		}
	}
}

// errKind maps service errors to stable metric labels.
func errKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrWalletInactive):
		return "wallet_inactive"
	case errors.Is(err, ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ErrSelfDonation):
		return "self_donation"
	case errors.Is(err, ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	default:
		return "internal"
	}
}
