package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BetStatus string

const (
	BetStatusActive    BetStatus = "active"
	BetStatusLocked    BetStatus = "locked"
	BetStatusCompleted BetStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s BetStatus) Valid() bool {
	switch s {
	case BetStatusActive, BetStatusLocked, BetStatusCompleted:
		return true
	}
	return false
}

const (
	MinBetOptions = 2
	MaxBetOptions = 20
)

var (
	ErrTooFewOptions      = errors.New("a bet needs at least two options")
	ErrTooManyOptions     = fmt.Errorf("a bet can have at most %d options", MaxBetOptions)
	ErrOptionIDInvalid    = errors.New("option ids must be positive")
	ErrOptionIDDuplicated = errors.New("option ids must be unique")
	ErrOptionTextEmpty    = errors.New("option text must not be empty")
)

// BetOption is one outcome users can stake on.
type BetOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// BetOptions is the ordered option list owned by a bet.
type BetOptions []BetOption

// NewBetOptions numbers texts 1..n in the given order.
func NewBetOptions(texts []string) BetOptions {
	opts := make(BetOptions, 0, len(texts))
	for i, text := range texts {
		opts = append(opts, BetOption{ID: i + 1, Text: strings.TrimSpace(text)})
	}
	return opts
}

// Validate checks option count, ids and text.
func (o BetOptions) Validate() error {
	if len(o) < MinBetOptions {
		return ErrTooFewOptions
	}
	if len(o) > MaxBetOptions {
		return ErrTooManyOptions
	}
	seen := make(map[int]struct{}, len(o))
	for _, opt := range o {
		if opt.ID <= 0 {
			return ErrOptionIDInvalid
		}
		if _, dup := seen[opt.ID]; dup {
			return ErrOptionIDDuplicated
		}
		seen[opt.ID] = struct{}{}
		if strings.TrimSpace(opt.Text) == "" {
			return ErrOptionTextEmpty
		}
	}
	return nil
}

// Find returns the option with the given id.
func (o BetOptions) Find(id int) (BetOption, bool) {
	for _, opt := range o {
		if opt.ID == id {
			return opt, true
		}
	}
	return BetOption{}, false
}

// Has reports whether id names one of the options.
func (o BetOptions) Has(id int) bool {
	_, ok := o.Find(id)
	return ok
}

func (o BetOptions) Value() (driver.Value, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal([]BetOption(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *BetOptions) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported bet options source %T", value)
	}
	var opts []BetOption
	if err := json.Unmarshal(raw, &opts); err != nil {
		return fmt.Errorf("failed to decode bet options: %w", err)
	}
	*o = opts
	return nil
}

// Bet is a multi-option wager. The pool fields are a cache of the
// participation rows; settlement recomputes them before paying out.
type Bet struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Title             string          `gorm:"size:500;not null" json:"title"`
	Description       string          `gorm:"type:text" json:"description"`
	Options           BetOptions      `gorm:"type:text;not null" json:"options"`
	Status            BetStatus       `gorm:"size:20;not null;default:active;index" json:"status"`
	CommissionRate    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:1" json:"commission_rate"`
	TotalPool         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_pool"`
	CommissionAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"commission_amount"`
	PrizePool         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"prize_pool"`
	DistributedAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"distributed_amount"`
	RetainedAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"retained_amount"`
	WinningOptionID   *int            `json:"winning_option_id,omitempty"`
	CreatedBy         string          `gorm:"size:191;index" json:"created_by"`
	Participations    []Participation `gorm:"foreignKey:BetID" json:"participations,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// TableName specifies the table name for Bet model
func (Bet) TableName() string {
	return "bets"
}

// Completed reports whether the bet reached its terminal state.
func (b *Bet) Completed() bool {
	return b.Status == BetStatusCompleted
}
