package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/services/fee"

	"github.com/google/uuid"
)

// Transfer moves amount between two wallets of the same currency. The
// debit (amount plus fee) and the credit commit as one unit.
func (s *service) Transfer(ctx context.Context, fromWalletID, toWalletID uint, amount float64, description string) (*TransferResult, error) {
	result, err := s.transfer(ctx, fromWalletID, toWalletID, amount, description, false)
	if err != nil {
		s.metrics.RecordError("transfer", errKind(err))
		return nil, err
	}
	s.metrics.RecordTransaction(models.TransactionTypeTransfer, amount)
	return result, nil
}

// TransferCrossCurrency behaves like Transfer but converts the credited
// amount when the wallets are denominated in different currencies. The
// rate snapshot is recorded in both entries' metadata; the fee is always
// charged in the source currency.
func (s *service) TransferCrossCurrency(ctx context.Context, fromWalletID, toWalletID uint, amount float64, description string) (*TransferResult, error) {
	result, err := s.transfer(ctx, fromWalletID, toWalletID, amount, description, true)
	if err != nil {
		s.metrics.RecordError("transfer_fx", errKind(err))
		return nil, err
	}
	s.metrics.RecordTransaction(models.TransactionTypeTransfer, amount)
	return result, nil
}

func (s *service) transfer(ctx context.Context, fromWalletID, toWalletID uint, amount float64, description string, allowConversion bool) (*TransferResult, error) {
	if fromWalletID == toWalletID {
		return nil, ErrSelfTransfer
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *TransferResult
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		source, dest, err := s.lockWalletPair(ctx, wallets, fromWalletID, toWalletID)
		if err != nil {
			return err
		}

		credited := amount
		var metadata models.JSON
		if source.Currency != dest.Currency {
			if !allowConversion {
				return ErrCurrencyMismatch
			}
			if s.rates == nil {
				return fmt.Errorf("%w: no rate provider", ErrCurrencyMismatch)
			}
			// The rate is fetched before any write; a timeout or upstream
			// failure aborts the transaction with nothing applied. The
			// snapshot recorded below is the rate actually used.
			conv, err := s.rates.Convert(ctx, amount, source.Currency, dest.Currency)
			if err != nil {
				return err
			}
			credited = conv.Amount
			metadata = models.NewJSON(map[string]interface{}{
				"exchange_rate":    conv.Rate,
				"source_currency":  source.Currency,
				"target_currency":  dest.Currency,
				"source_amount":    amount,
				"converted_amount": credited,
			})
		}

		feeAmount := s.fees.Calculate(amount, fee.TypeTransfer)
		total := amount + feeAmount
		if source.Balance < total {
			return ErrInsufficientFunds
		}

		now := time.Now()
		ref := uuid.NewString()
		debit := &models.Transaction{
			WalletID:        source.ID,
			RelatedWalletID: &dest.ID,
			Type:            models.TransactionTypeTransfer,
			Amount:          -total,
			FeeAmount:       feeAmount,
			Currency:        source.Currency,
			Status:          models.TransactionStatusCompleted,
			Description:     description,
			Reference:       ref,
			Metadata:        metadata,
			ProcessedAt:     &now,
		}
		if err := ledger.Create(ctx, debit); err != nil {
			return err
		}

		credit := &models.Transaction{
			WalletID:        dest.ID,
			RelatedWalletID: &source.ID,
			Type:            models.TransactionTypeTransfer,
			Amount:          credited,
			Currency:        dest.Currency,
			Status:          models.TransactionStatusCompleted,
			Description:     description,
			Reference:       ref,
			Metadata:        metadata,
			ProcessedAt:     &now,
		}
		if err := ledger.Create(ctx, credit); err != nil {
			return err
		}

		source.Balance -= total
		source.TotalTransfers += amount
		source.TotalFees += feeAmount
		source.LastTransactionAt = &now
		if err := wallets.Update(ctx, source); err != nil {
			return err
		}

		dest.Balance += credited
		dest.TotalTransfers += credited
		dest.LastTransactionAt = &now
		if err := wallets.Update(ctx, dest); err != nil {
			return err
		}

		result = &TransferResult{Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, fromWalletID, toWalletID)
	return result, nil
}

// Donate sends amount from a wallet to another user's wallet in the same
// currency. The donation fee comes out of the sender's amount: the
// recipient receives amount minus fee.
func (s *service) Donate(ctx context.Context, fromWalletID, toUserID uint, amount float64, description string) (*TransferResult, error) {
	if amount <= 0 {
		s.metrics.RecordError("donate", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var result *TransferResult
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		source, err := wallets.GetByID(ctx, fromWalletID)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if source.UserID == toUserID {
			return ErrSelfDonation
		}

		dest, err := wallets.GetByUserAndCurrency(ctx, toUserID, source.Currency)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		source, dest, err = s.lockWalletPair(ctx, wallets, source.ID, dest.ID)
		if err != nil {
			return err
		}

		feeAmount := s.fees.Calculate(amount, fee.TypeDonation)
		net := amount - feeAmount
		if net <= 0 {
			return ErrInvalidAmount
		}
		if source.Balance < amount {
			return ErrInsufficientFunds
		}

		now := time.Now()
		ref := uuid.NewString()
		debit := &models.Transaction{
			WalletID:        source.ID,
			RelatedWalletID: &dest.ID,
			Type:            models.TransactionTypeDonation,
			Amount:          -amount,
			FeeAmount:       feeAmount,
			Currency:        source.Currency,
			Status:          models.TransactionStatusCompleted,
			Description:     description,
			Reference:       ref,
			ProcessedAt:     &now,
		}
		if err := ledger.Create(ctx, debit); err != nil {
			return err
		}

		credit := &models.Transaction{
			WalletID:        dest.ID,
			RelatedWalletID: &source.ID,
			Type:            models.TransactionTypeDonation,
			Amount:          net,
			Currency:        dest.Currency,
			Status:          models.TransactionStatusCompleted,
			Description:     description,
			Reference:       ref,
			ProcessedAt:     &now,
		}
		if err := ledger.Create(ctx, credit); err != nil {
			return err
		}

		source.Balance -= amount
		source.TotalDonations += amount
		source.TotalFees += feeAmount
		source.LastTransactionAt = &now
		if err := wallets.Update(ctx, source); err != nil {
			return err
		}

		dest.Balance += net
		dest.TotalDonations += net
		dest.LastTransactionAt = &now
		if err := wallets.Update(ctx, dest); err != nil {
			return err
		}

		result = &TransferResult{Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		s.metrics.RecordError("donate", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, result.Debit.WalletID, result.Credit.WalletID)
	s.metrics.RecordTransaction(models.TransactionTypeDonation, amount)
	return result, nil
}
