package handlers

import (
	"errors"
	"log"

	"streampay/internal/repositories"
	"streampay/internal/services/ledger"
	"streampay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler covers the gateway-settled flows: card deposits, payouts
// to external accounts, and the settlement webhook.
type PaymentHandler struct {
	ledger       ledger.Service
	transactions repositories.TransactionRepository
}

func NewPaymentHandler(ledgerService ledger.Service, transactions repositories.TransactionRepository) *PaymentHandler {
	return &PaymentHandler{
		ledger:       ledgerService,
		transactions: transactions,
	}
}

// DepositViaGateway starts a card deposit. The ledger entry stays pending
// until the gateway confirms settlement through the webhook.
func (h *PaymentHandler) DepositViaGateway(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledger.GetWallet(c.Context(), uint(walletID))
	if err != nil {
		return ledgerError(c, err)
	}
	if wallet.UserID != claims.UserID {
		return utils.Forbidden(c, "wallet does not belong to you")
	}

	tx, intent, err := h.ledger.DepositViaGateway(c.Context(), wallet.ID, input.Amount, input.Description)
	if err != nil {
		if errors.Is(err, ledger.ErrGatewayNotConfigured) {
			return utils.InternalError(c, "payment gateway unavailable")
		}
		return ledgerError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"transaction":   tx,
		"client_secret": intent.ClientSecret,
		"intent_id":     intent.ID,
	})
}

// WithdrawViaGateway starts a payout to an external destination. Funds
// are only debited once the gateway reports settlement.
func (h *PaymentHandler) WithdrawViaGateway(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		Amount      float64 `json:"amount"`
		Destination string  `json:"destination"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.Destination == "" {
		return utils.BadRequest(c, "destination is required")
	}

	wallet, err := h.ledger.GetWallet(c.Context(), uint(walletID))
	if err != nil {
		return ledgerError(c, err)
	}
	if wallet.UserID != claims.UserID {
		return utils.Forbidden(c, "wallet does not belong to you")
	}

	tx, err := h.ledger.WithdrawViaGateway(c.Context(), wallet.ID, input.Amount, input.Destination)
	if err != nil {
		if errors.Is(err, ledger.ErrGatewayNotConfigured) {
			return utils.InternalError(c, "payment gateway unavailable")
		}
		return ledgerError(c, err)
	}

	return utils.Success(c, fiber.Map{"transaction": tx})
}

// GatewayWebhook receives settlement notifications from the payment
// gateway and finalizes the pending ledger entry. The endpoint is
// idempotent: repeated notifications for a settled entry are no-ops.
func (h *PaymentHandler) GatewayWebhook(c *fiber.Ctx) error {
	var event struct {
		ExternalID    string `json:"external_id"`
		Succeeded     bool   `json:"succeeded"`
		FailureReason string `json:"failure_reason"`
	}
	if err := c.BodyParser(&event); err != nil {
		return utils.BadRequest(c, "invalid webhook payload")
	}
	if event.ExternalID == "" {
		return utils.BadRequest(c, "external_id is required")
	}

	tx, err := h.ledger.ConfirmGatewayTransaction(c.Context(), event.ExternalID, event.Succeeded, event.FailureReason)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			// Unknown references are acknowledged so the gateway stops
			// retrying; they are logged for investigation.
			log.Printf("webhook for unknown external id %s", event.ExternalID)
			return utils.Success(c, fiber.Map{"status": "ignored"})
		}
		return utils.InternalError(c, "failed to process webhook")
	}

	return utils.Success(c, fiber.Map{
		"status":      tx.Status,
		"transaction": tx.ID,
	})
}

// GetTransaction returns a single ledger entry, restricted to the owner
// of the wallet it belongs to.
func (h *PaymentHandler) GetTransaction(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	txID, err := c.ParamsInt("id")
	if err != nil || txID <= 0 {
		return utils.BadRequest(c, "invalid transaction id")
	}

	tx, err := h.transactions.GetByID(c.Context(), uint(txID))
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		return utils.InternalError(c, "failed to load transaction")
	}

	wallet, err := h.ledger.GetWallet(c.Context(), tx.WalletID)
	if err != nil {
		return ledgerError(c, err)
	}
	if wallet.UserID != claims.UserID && !claims.IsAdmin() {
		return utils.Forbidden(c, "transaction does not belong to you")
	}

	return utils.Success(c, fiber.Map{"transaction": tx})
}
