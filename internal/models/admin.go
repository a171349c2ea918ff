package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JSONB stores free-form details as a JSON document
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source %T", value)
	}
	return json.Unmarshal(raw, j)
}

// Admin actions recorded in the audit log
const (
	AdminActionCreateBet        = "CREATE_BET"
	AdminActionUpdateBet        = "UPDATE_BET"
	AdminActionUpdateCommission = "UPDATE_COMMISSION"
	AdminActionDeleteBet        = "DELETE_BET"
	AdminActionSettleBet        = "SETTLE_BET"
	AdminActionAdjustBalance    = "ADJUST_BALANCE"
	AdminActionDeactivateUser   = "DEACTIVATE_USER"
)

// AdminLog records admin actions for audit trail
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      string    `gorm:"size:191;not null;index" json:"admin_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"` // BET, USER
	ResourceID   string    `gorm:"size:191" json:"resource_id"`
	Details      JSONB     `gorm:"type:text" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}

// PlatformStats is the admin dashboard summary. It is computed on demand and
// never persisted.
type PlatformStats struct {
	Since                time.Time        `json:"since"`
	TotalUsers           int64            `json:"total_users"`
	RecentUsers          int64            `json:"recent_users"`
	TotalBets            int64            `json:"total_bets"`
	RecentBets           int64            `json:"recent_bets"`
	BetsByStatus         map[string]int64 `json:"bets_by_status"`
	TotalParticipations  int64            `json:"total_participations"`
	RecentParticipations int64            `json:"recent_participations"`
	TotalPoolVolume      decimal.Decimal  `json:"total_pool_volume"`
	TotalPrizePool       decimal.Decimal  `json:"total_prize_pool"`
	TotalCommission      decimal.Decimal  `json:"total_commission"`
	TotalDistributed     decimal.Decimal  `json:"total_distributed"`
}

// MonthlyCount is one month of a count series, keyed "2006-01"
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// MonthlyAmount is one month of a money series, keyed "2006-01"
type MonthlyAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// TopParticipant ranks users by how often and how much they staked
type TopParticipant struct {
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Participations int64           `json:"participations"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// PlatformAnalytics holds the month-by-month trends of the admin dashboard
type PlatformAnalytics struct {
	Since           time.Time        `json:"since"`
	UserGrowth      []MonthlyCount   `json:"user_growth"`
	CommissionTrend []MonthlyAmount  `json:"commission_trend"`
	BetsByStatus    map[string]int64 `json:"bets_by_status"`
	TopUsers        []TopParticipant `json:"top_users"`
}
