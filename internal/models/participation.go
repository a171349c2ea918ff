package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participation is a user's stake on one option of a bet. There is at most
// one row per (bet, user); changing the stake amends this row.
type Participation struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BetID     uint            `gorm:"not null;uniqueIndex:idx_participation_bet_user" json:"bet_id"`
	UserID    string          `gorm:"size:191;not null;uniqueIndex:idx_participation_bet_user;index" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OptionID  int             `gorm:"not null" json:"option_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Participation model
func (Participation) TableName() string {
	return "bet_participations"
}
