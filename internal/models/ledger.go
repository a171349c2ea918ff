package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LedgerEntryType string

const (
	LedgerEntryCredit          LedgerEntryType = "credit"
	LedgerEntryDebit           LedgerEntryType = "debit"
	LedgerEntryBetWin          LedgerEntryType = "bet_win"
	LedgerEntryBetLoss         LedgerEntryType = "bet_loss"
	LedgerEntryAdminAdjustment LedgerEntryType = "admin_adjustment"
)

// ErrLedgerImmutable is returned when something tries to rewrite history.
var ErrLedgerImmutable = errors.New("ledger entries are append-only")

// LedgerEntry is the audit record of one balance change. Amount is signed:
// debits are negative, credits positive, and outcome-only rows are zero, so
// BalanceAfter - BalanceBefore == Amount always holds.
type LedgerEntry struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         string          `gorm:"size:191;not null;index" json:"user_id"`
	Type           LedgerEntryType `gorm:"size:30;not null;index" json:"type"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description    string          `gorm:"type:text" json:"description"`
	ReferenceBetID *uint           `gorm:"index" json:"reference_bet_id,omitempty"`
	BalanceBefore  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance_before"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance_after"`
	CreatedBy      *string         `gorm:"size:191" json:"created_by,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model
func (LedgerEntry) TableName() string {
	return "payment_history"
}

// Consistent reports whether the snapshots agree with the signed amount.
func (e *LedgerEntry) Consistent() bool {
	return e.BalanceAfter.Sub(e.BalanceBefore).Equal(e.Amount)
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrLedgerImmutable
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrLedgerImmutable
}
