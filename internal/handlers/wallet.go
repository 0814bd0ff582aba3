// Package handlers contains the fiber HTTP handlers. Handlers translate
// requests into ledger service calls and map service errors onto HTTP
// status codes; they hold no business logic of their own.
package handlers

import (
	"errors"

	"streampay/internal/models"
	"streampay/internal/repositories"
	"streampay/internal/services/exchange"
	"streampay/internal/services/gateway"
	"streampay/internal/services/ledger"
	"streampay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledger  ledger.Service
	wallets repositories.WalletRepository
}

func NewWalletHandler(ledgerService ledger.Service, wallets repositories.WalletRepository) *WalletHandler {
	return &WalletHandler{
		ledger:  ledgerService,
		wallets: wallets,
	}
}

// extractUserClaims is a helper to reduce duplication across handlers.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

// ownedWallet loads the wallet at :id and verifies the caller owns it.
// Admins may act on any wallet.
func (h *WalletHandler) ownedWallet(c *fiber.Ctx, claims *models.UserClaims) (*models.Wallet, error) {
	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return nil, utils.BadRequest(c, "invalid wallet id")
	}

	wallet, err := h.ledger.GetWallet(c.Context(), uint(walletID))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return nil, utils.NotFound(c, "wallet not found")
		}
		return nil, utils.InternalError(c, "failed to load wallet")
	}
	if wallet.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, utils.Forbidden(c, "wallet does not belong to you")
	}
	return wallet, nil
}

// ledgerError maps ledger sentinel errors to HTTP responses.
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return utils.BadRequest(c, "amount must be greater than zero")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return utils.UnprocessableEntity(c, "insufficient funds")
	case errors.Is(err, ledger.ErrWalletInactive):
		return utils.UnprocessableEntity(c, "wallet is not active")
	case errors.Is(err, ledger.ErrWalletNotFound):
		return utils.NotFound(c, "wallet not found")
	case errors.Is(err, ledger.ErrWalletExists):
		return utils.Conflict(c, "wallet already exists for this currency")
	case errors.Is(err, ledger.ErrSelfTransfer):
		return utils.BadRequest(c, "cannot transfer to the same wallet")
	case errors.Is(err, ledger.ErrSelfDonation):
		return utils.BadRequest(c, "cannot donate to yourself")
	case errors.Is(err, ledger.ErrCurrencyMismatch):
		return utils.UnprocessableEntity(c, "wallet currencies do not match")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return utils.NotFound(c, "transaction not found")
	case errors.Is(err, exchange.ErrUnsupportedCurrency):
		return utils.UnprocessableEntity(c, "unsupported currency")
	case errors.Is(err, exchange.ErrRateUnavailable):
		return utils.Respond(c, fiber.StatusBadGateway, fiber.Map{"error": "exchange rate unavailable"})
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return utils.Respond(c, fiber.StatusBadGateway, fiber.Map{"error": "payment gateway unavailable"})
	default:
		return utils.InternalError(c, "operation failed")
	}
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Currency string `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledger.CreateWallet(c.Context(), claims.UserID, input.Currency)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Created(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) ListWallets(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallets, err := h.wallets.GetByUserID(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to list wallets")
	}
	return utils.Success(c, fiber.Map{"wallets": wallets})
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}
	return utils.Success(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}
	return utils.Success(c, fiber.Map{
		"wallet_id": wallet.ID,
		"balance":   wallet.Balance,
		"currency":  wallet.Currency,
	})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	var input struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.ledger.Deposit(c.Context(), wallet.ID, input.Amount, input.Description)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": tx})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	var input struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.ledger.Withdraw(c.Context(), wallet.ID, input.Amount, input.Description)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": tx})
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	var input struct {
		ToWalletID      uint    `json:"to_wallet_id"`
		Amount          float64 `json:"amount"`
		Description     string  `json:"description"`
		AllowConversion bool    `json:"allow_conversion"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.ToWalletID == 0 {
		return utils.BadRequest(c, "to_wallet_id is required")
	}

	var result *ledger.TransferResult
	if input.AllowConversion {
		result, err = h.ledger.TransferCrossCurrency(c.Context(), wallet.ID, input.ToWalletID, input.Amount, input.Description)
	} else {
		result, err = h.ledger.Transfer(c.Context(), wallet.ID, input.ToWalletID, input.Amount, input.Description)
	}
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"debit":  result.Debit,
		"credit": result.Credit,
	})
}

func (h *WalletHandler) Donate(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	var input struct {
		ToUserID    uint    `json:"to_user_id"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.ToUserID == 0 {
		return utils.BadRequest(c, "to_user_id is required")
	}

	result, err := h.ledger.Donate(c.Context(), wallet.ID, input.ToUserID, input.Amount, input.Description)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"debit":  result.Debit,
		"credit": result.Credit,
	})
}

// ChargeFee applies a standalone platform fee to a wallet. Admin only.
func (h *WalletHandler) ChargeFee(c *fiber.Ctx) error {
	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		FeeType     string  `json:"fee_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.ledger.ChargeFee(c.Context(), uint(walletID), input.Amount, input.Description, input.FeeType)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": tx})
}

// Refund credits a wallet against a prior completed debit. Admin only.
func (h *WalletHandler) Refund(c *fiber.Ctx) error {
	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		ExternalRef string  `json:"external_ref"`
		Amount      float64 `json:"amount"`
		Reason      string  `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.ExternalRef == "" {
		return utils.BadRequest(c, "external_ref is required")
	}

	tx, err := h.ledger.Refund(c.Context(), uint(walletID), input.ExternalRef, input.Amount, input.Reason)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": tx})
}

func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	txType := c.Query("type")

	var entries []*models.Transaction
	if txType != "" {
		entries, err = h.ledger.GetTransactionsByType(c.Context(), wallet.ID, txType, limit, offset)
	} else {
		entries, err = h.ledger.GetHistory(c.Context(), wallet.ID, limit, offset)
	}
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"transactions": entries,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *WalletHandler) GetStats(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	stats, err := h.ledger.GetTransactionStats(c.Context(), wallet.ID)
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"stats": stats})
}

// CheckConsistency recomputes the wallet balance from completed ledger
// entries and reports any drift. Admin only.
func (h *WalletHandler) CheckConsistency(c *fiber.Ctx) error {
	walletID, err := c.ParamsInt("id")
	if err != nil || walletID <= 0 {
		return utils.BadRequest(c, "invalid wallet id")
	}

	report, err := h.ledger.CheckConsistency(c.Context(), uint(walletID))
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"report": report})
}

// PlatformOverview reports total holdings and the active wallet count.
// Admin only.
func (h *WalletHandler) PlatformOverview(c *fiber.Ctx) error {
	summary, err := h.ledger.GetPlatformSummary(c.Context(), c.Query("currency"))
	if err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"summary": summary})
}

func (h *WalletHandler) Deactivate(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	if err := h.ledger.DeactivateWallet(c.Context(), wallet.ID); err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet deactivated"})
}

func (h *WalletHandler) Reactivate(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	wallet, errResp := h.ownedWallet(c, claims)
	if wallet == nil {
		return errResp
	}

	if err := h.ledger.ReactivateWallet(c.Context(), wallet.ID); err != nil {
		return ledgerError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet reactivated"})
}
