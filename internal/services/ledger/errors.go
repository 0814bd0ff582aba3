package ledger

import "errors"

// Service errors
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrWalletInactive       = errors.New("wallet is inactive")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrWalletExists         = errors.New("wallet already exists for this currency")
	ErrSelfTransfer         = errors.New("cannot transfer to the same wallet")
	ErrSelfDonation         = errors.New("cannot donate to yourself")
	ErrCurrencyMismatch     = errors.New("wallet currencies do not match")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
)
