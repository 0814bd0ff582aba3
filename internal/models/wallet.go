package models

import (
	"time"
)

// Wallet holds a single user's balance in one currency. A user may own
// several wallets, but never two in the same currency (enforced by the
// composite unique index).
type Wallet struct {
	ID       uint    `gorm:"primarykey" json:"id"`
	UserID   uint    `gorm:"uniqueIndex:idx_wallets_user_currency;not null" json:"user_id"`
	Currency string  `gorm:"uniqueIndex:idx_wallets_user_currency;not null" json:"currency"`
	Balance  float64 `gorm:"not null;default:0" json:"balance"`
	IsActive bool    `gorm:"not null;default:true" json:"is_active"`

	// Cumulative counters. Principal amounts accumulate in their own
	// counter, fees accumulate in TotalFees only.
	TotalDeposits    float64 `gorm:"not null;default:0" json:"total_deposits"`
	TotalWithdrawals float64 `gorm:"not null;default:0" json:"total_withdrawals"`
	TotalFees        float64 `gorm:"not null;default:0" json:"total_fees"`
	TotalTransfers   float64 `gorm:"not null;default:0" json:"total_transfers"`
	TotalDonations   float64 `gorm:"not null;default:0" json:"total_donations"`

	LastTransactionAt *time.Time `json:"last_transaction_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
