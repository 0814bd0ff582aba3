package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/services/fee"
	"streampay/internal/services/gateway"

	"github.com/google/uuid"
)

// DepositViaGateway initiates a gateway-settled deposit. It creates a
// payment intent with the provider and records a pending ledger entry
// carrying the intent id; the balance is untouched until
// ConfirmGatewayTransaction reports the settlement.
func (s *service) DepositViaGateway(ctx context.Context, walletID uint, amount float64, description string) (*models.Transaction, *gateway.PaymentIntent, error) {
	if s.gateway == nil {
		return nil, nil, ErrGatewayNotConfigured
	}
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, nil, err
	}
	if !wallet.IsActive {
		return nil, nil, ErrWalletInactive
	}

	feeAmount := s.fees.Calculate(amount, fee.TypeDeposit)
	net := amount - feeAmount
	if net <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	intent, err := s.gateway.CreatePaymentIntent(gwCtx, amount, wallet.Currency, map[string]string{
		"wallet_id": fmt.Sprintf("%d", wallet.ID),
	})
	if err != nil {
		s.metrics.RecordError("deposit_gateway", "gateway")
		return nil, nil, err
	}

	entry := &models.Transaction{
		WalletID:    wallet.ID,
		Type:        models.TransactionTypeDeposit,
		Amount:      net,
		FeeAmount:   feeAmount,
		Currency:    wallet.Currency,
		Status:      models.TransactionStatusPending,
		Description: description,
		Reference:   uuid.NewString(),
		ExternalID:  intent.ID,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, nil, err
	}

	return entry, intent, nil
}

// WithdrawViaGateway initiates a gateway-settled withdrawal. Funds are
// only debited when the payout settles; the pre-check here rejects
// obviously unfundable requests early.
func (s *service) WithdrawViaGateway(ctx context.Context, walletID uint, amount float64, destination string) (*models.Transaction, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, ErrWalletInactive
	}

	feeAmount := s.fees.Calculate(amount, fee.TypeWithdrawal)
	if wallet.Balance < amount+feeAmount {
		return nil, ErrInsufficientFunds
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	payout, err := s.gateway.CreatePayout(gwCtx, amount, wallet.Currency, destination)
	if err != nil {
		s.metrics.RecordError("withdraw_gateway", "gateway")
		return nil, err
	}

	entry := &models.Transaction{
		WalletID:    wallet.ID,
		Type:        models.TransactionTypeWithdrawal,
		Amount:      -amount,
		FeeAmount:   feeAmount,
		Currency:    wallet.Currency,
		Status:      models.TransactionStatusPending,
		Description: fmt.Sprintf("payout to %s", destination),
		Reference:   uuid.NewString(),
		ExternalID:  payout.ID,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ConfirmGatewayTransaction finalizes a pending gateway-settled entry once
// the provider reports the outcome. The status flip and the balance effect
// commit together. The flip goes through ClaimPending, so of any number of
// concurrent webhook deliveries exactly one applies the balance; the rest
// observe the settled entry and return it unchanged.
func (s *service) ConfirmGatewayTransaction(ctx context.Context, externalID string, succeeded bool, failureReason string) (*models.Transaction, error) {
	if externalID == "" {
		return nil, ErrTransactionNotFound
	}

	var confirmed *models.Transaction
	err := s.wallets.ExecuteInTransaction(ctx, func(wallets repositories.WalletRepository, ledger repositories.TransactionRepository) error {
		entry, err := ledger.GetByExternalID(ctx, externalID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		confirmed = entry

		if entry.Status != models.TransactionStatusPending {
			return nil
		}

		// alreadySettled reloads the entry after a lost claim so the
		// caller sees the outcome the winning delivery committed.
		alreadySettled := func() error {
			latest, err := ledger.GetByID(ctx, entry.ID)
			if err != nil {
				return err
			}
			confirmed = latest
			return nil
		}

		failEntry := func(reason string) error {
			if err := ledger.ClaimPending(ctx, entry.ID, models.TransactionStatusFailed, reason); err != nil {
				if errors.Is(err, repositories.ErrTransactionNotPending) {
					return alreadySettled()
				}
				return err
			}
			entry.Status = models.TransactionStatusFailed
			entry.FailureReason = reason
			return nil
		}

		if !succeeded {
			return failEntry(failureReason)
		}

		wallet, err := wallets.GetByIDForUpdate(ctx, entry.WalletID)
		if err != nil {
			return err
		}

		// Re-checked under the lock: freezes and spends between
		// initiation and settlement fail the entry instead of applying it.
		if !wallet.IsActive {
			return failEntry("wallet inactive at settlement")
		}

		now := time.Now()
		switch entry.Type {
		case models.TransactionTypeDeposit:
			if err := ledger.ClaimPending(ctx, entry.ID, models.TransactionStatusCompleted, ""); err != nil {
				if errors.Is(err, repositories.ErrTransactionNotPending) {
					return alreadySettled()
				}
				return err
			}
			wallet.Balance += entry.Amount
			wallet.TotalDeposits += entry.Amount
			wallet.TotalFees += entry.FeeAmount

		case models.TransactionTypeWithdrawal:
			principal := -entry.Amount
			total := principal + entry.FeeAmount
			if wallet.Balance < total {
				return failEntry("insufficient funds at settlement")
			}
			if err := ledger.ClaimPending(ctx, entry.ID, models.TransactionStatusCompleted, ""); err != nil {
				if errors.Is(err, repositories.ErrTransactionNotPending) {
					return alreadySettled()
				}
				return err
			}
			wallet.Balance -= total
			wallet.TotalWithdrawals += principal
			wallet.TotalFees += entry.FeeAmount

			if entry.FeeAmount > 0 {
				feeEntry := &models.Transaction{
					WalletID:    wallet.ID,
					Type:        models.TransactionTypeFee,
					Amount:      -entry.FeeAmount,
					FeeAmount:   entry.FeeAmount,
					Currency:    wallet.Currency,
					Status:      models.TransactionStatusCompleted,
					Description: "withdrawal fee",
					Reference:   entry.Reference,
					ProcessedAt: &now,
				}
				if err := ledger.Create(ctx, feeEntry); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("unexpected pending entry type %q", entry.Type)
		}

		entry.Status = models.TransactionStatusCompleted
		entry.ProcessedAt = &now

		wallet.LastTransactionAt = &now
		return wallets.Update(ctx, wallet)
	})
	if err != nil {
		s.metrics.RecordError("confirm_gateway", errKind(err))
		return nil, err
	}

	s.invalidate(ctx, confirmed.WalletID)
	return confirmed, nil
}
