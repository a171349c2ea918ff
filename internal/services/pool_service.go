package services

import (
	"context"
	"fmt"

	"betting-pool/internal/models"
	"betting-pool/internal/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OptionStats is the pool breakdown for one option.
type OptionStats struct {
	OptionID         int             `json:"option_id"`
	Text             string          `json:"text"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ParticipantCount int             `json:"participant_count"`
	// PotentialMultiplier is prizePool / TotalAmount at the current
	// commission rate. Display only; the payout is fixed at settlement.
	PotentialMultiplier decimal.Decimal `json:"potential_multiplier"`
}

// PoolStats is the derived money picture of a bet.
type PoolStats struct {
	BetID            uint             `json:"bet_id"`
	Status           models.BetStatus `json:"status"`
	CommissionRate   decimal.Decimal  `json:"commission_rate"`
	TotalPool        decimal.Decimal  `json:"total_pool"`
	CommissionAmount decimal.Decimal  `json:"commission_amount"`
	PrizePool        decimal.Decimal  `json:"prize_pool"`
	ParticipantCount int              `json:"participant_count"`
	Options          []OptionStats    `json:"options"`
}

// CalculatePool derives the pool of bet from its participations. It reads
// nothing and writes nothing.
func CalculatePool(bet *models.Bet, participations []*models.Participation) *PoolStats {
	stats := &PoolStats{
		BetID:            bet.ID,
		Status:           bet.Status,
		CommissionRate:   bet.CommissionRate,
		ParticipantCount: len(participations),
		Options:          make([]OptionStats, 0, len(bet.Options)),
	}

	byOption := make(map[int]*OptionStats, len(bet.Options))
	for _, opt := range bet.Options {
		stats.Options = append(stats.Options, OptionStats{OptionID: opt.ID, Text: opt.Text})
	}
	for i := range stats.Options {
		byOption[stats.Options[i].OptionID] = &stats.Options[i]
	}

	total := decimal.Zero
	for _, p := range participations {
		total = total.Add(p.Amount)
		if o, ok := byOption[p.OptionID]; ok {
			o.TotalAmount = o.TotalAmount.Add(p.Amount)
			o.ParticipantCount++
		}
	}

	stats.TotalPool = total
	stats.CommissionAmount = money.Percent(total, bet.CommissionRate)
	stats.PrizePool = total.Sub(stats.CommissionAmount)

	for i := range stats.Options {
		stats.Options[i].PotentialMultiplier = money.Ratio(stats.PrizePool, stats.Options[i].TotalAmount)
	}

	return stats
}

// PoolService serves pool statistics, through the cache when one is configured.
type PoolService struct {
	Deps
}

func NewPoolService(deps Deps) *PoolService {
	return &PoolService{Deps: deps.withDefaults()}
}

// GetPoolStats returns the current pool of a bet.
func (s *PoolService) GetPoolStats(ctx context.Context, betID uint) (*PoolStats, error) {
	var cached PoolStats
	hit, err := s.Cache.Get(ctx, betID, &cached)
	if err != nil {
		s.Logger.Warn("pool stats cache read failed", zap.Uint("bet_id", betID), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	bet, err := s.Repo.GetBet(ctx, betID)
	if err != nil {
		return nil, translateDBError(notFound(err, ErrBetNotFound), "get bet")
	}
	participations, err := s.Repo.ListParticipations(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	stats := CalculatePool(bet, participations)
	if err := s.Cache.Set(ctx, betID, stats); err != nil {
		s.Logger.Warn("pool stats cache write failed", zap.Uint("bet_id", betID), zap.Error(err))
	}
	return stats, nil
}
