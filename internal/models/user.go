package models

import (
	"time"
)

// User is a platform account. Wallets reference users by id; the ledger
// never touches the account record itself.
type User struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	DisplayName string     `gorm:"not null" json:"display_name"`
	Role        string     `gorm:"default:'user'" json:"role"`
	Status      string     `gorm:"default:'active'" json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
