package models

import (
	"github.com/shopspring/decimal"
)

// CreateBetRequest represents the request to create a new bet
type CreateBetRequest struct {
	Title          string           `json:"title" binding:"required" validate:"required,max=500"`
	Description    string           `json:"description" validate:"max=5000"`
	Options        []string         `json:"options" binding:"required" validate:"required,min=2,max=20,dive,required,max=200"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

// UpdateBetRequest carries the optional fields an admin may change
type UpdateBetRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *BetStatus `json:"status"`
}

// UpdateCommissionRequest changes a bet's commission rate
type UpdateCommissionRequest struct {
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// CompleteBetRequest settles a bet with the winning option
type CompleteBetRequest struct {
	WinningOptionID int `json:"winning_option_id" binding:"required,min=1"`
}

// ParticipationRequest is used both to place and to amend a stake
type ParticipationRequest struct {
	OptionID int             `json:"option_id" binding:"required,min=1"`
	Amount   decimal.Decimal `json:"amount"`
}

// AdjustBalanceRequest is an admin credit or debit
type AdjustBalanceRequest struct {
	Type        LedgerEntryType `json:"type" binding:"required,oneof=credit debit"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"required"`
}

// UpdateProfileRequest changes the caller's display name
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}
