package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeTransfer   = "transfer"
	TransactionTypeDonation   = "donation"
	TransactionTypeFee        = "fee"
	TransactionTypeRefund     = "refund"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Transaction is one ledger entry. Amount is signed relative to the owning
// wallet: positive credits, negative debits. Once Status is "completed" the
// amount and fee never change; corrections are new entries.
type Transaction struct {
	ID              uint    `gorm:"primarykey" json:"id"`
	WalletID        uint    `gorm:"not null;index" json:"wallet_id"`
	RelatedWalletID *uint   `gorm:"index" json:"related_wallet_id,omitempty"`
	Type            string  `gorm:"not null;index" json:"type"`
	Amount          float64 `gorm:"not null" json:"amount"`
	FeeAmount       float64 `gorm:"not null;default:0" json:"fee_amount"`
	Currency        string  `gorm:"not null" json:"currency"`
	Status          string  `gorm:"not null;default:'pending';index" json:"status"`
	Description     string  `json:"description"`
	Metadata        JSON    `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Reference links related entries: the two sides of a transfer, a
	// withdrawal and its fee entry, and refunds against their original.
	// ExternalID carries the payment-gateway intent/payout id.
	Reference  string `gorm:"index" json:"reference"`
	ExternalID string `gorm:"index" json:"external_id,omitempty"`

	FailureReason string     `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
