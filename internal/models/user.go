package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a platform account. The ID is issued by the identity provider.
// Balance only changes through the ledger.
type User struct {
	ID            string          `gorm:"primaryKey;size:191" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Email         string          `gorm:"size:255;index" json:"email"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	IsAdmin       bool            `gorm:"not null;default:false" json:"is_admin"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// Active reports whether the account has not been removed.
func (u *User) Active() bool {
	return u.DeactivatedAt == nil
}
