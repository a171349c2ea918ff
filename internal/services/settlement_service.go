package services

import (
	"context"
	"fmt"
	"time"

	"betting-pool/internal/events"
	"betting-pool/internal/models"
	"betting-pool/internal/money"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payout is what one winner receives.
type Payout struct {
	UserID string          `json:"user_id"`
	Stake  decimal.Decimal `json:"stake"`
	Prize  decimal.Decimal `json:"prize"`
}

// Distribution splits a prize pool among the stakes on the winning option.
type Distribution struct {
	Payouts           []Payout        `json:"payouts"`
	WinnerStake       decimal.Decimal `json:"winner_stake"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	RetainedAmount    decimal.Decimal `json:"retained_amount"`
}

// SettlementResult summarises a completed settlement.
type SettlementResult struct {
	BetID             uint            `json:"bet_id"`
	WinningOptionID   int             `json:"winning_option_id"`
	TotalPool         decimal.Decimal `json:"total_pool"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	PrizePool         decimal.Decimal `json:"prize_pool"`
	WinnersCount      int             `json:"winners_count"`
	LosersCount       int             `json:"losers_count"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	RetainedAmount    decimal.Decimal `json:"retained_amount"`
	Payouts           []Payout        `json:"payouts"`
}

// Distribute pays each winner floor(prizePool * stake / winnerStake) to the
// cent. Whatever the floors leave behind, or the whole prize pool when
// nobody picked the winning option, is retained by the house.
func Distribute(prizePool decimal.Decimal, participations []*models.Participation, winningOptionID int) *Distribution {
	d := &Distribution{WinnerStake: decimal.Zero, DistributedAmount: decimal.Zero}

	for _, p := range participations {
		if p.OptionID == winningOptionID {
			d.WinnerStake = d.WinnerStake.Add(p.Amount)
		}
	}

	for _, p := range participations {
		if p.OptionID != winningOptionID {
			continue
		}
		prize := money.ProRata(prizePool, p.Amount, d.WinnerStake)
		d.Payouts = append(d.Payouts, Payout{UserID: p.UserID, Stake: p.Amount, Prize: prize})
		d.DistributedAmount = d.DistributedAmount.Add(prize)
	}

	d.RetainedAmount = prizePool.Sub(d.DistributedAmount)
	return d
}

// SettlementService resolves bets and pays out winners.
type SettlementService struct {
	Deps
}

func NewSettlementService(deps Deps) *SettlementService {
	return &SettlementService{Deps: deps.withDefaults()}
}

// Settle completes a bet with winningOptionID. Everything happens in one
// transaction under the bet row lock: a second call, sequential or
// concurrent, finds the bet completed and fails with ErrBetAlreadyCompleted.
func (s *SettlementService) Settle(ctx context.Context, actor Actor, betID uint, winningOptionID int) (*SettlementResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	var result *SettlementResult
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		bet, err := tx.GetBetForUpdate(ctx, betID)
		if err != nil {
			return notFound(err, ErrBetNotFound)
		}
		if err := CheckOperation(bet, OpSettle); err != nil {
			return err
		}
		if !bet.Options.Has(winningOptionID) {
			return ErrInvalidWinningOption
		}

		participations, err := tx.ListParticipations(ctx, betID)
		if err != nil {
			return fmt.Errorf("failed to list participations: %w", err)
		}

		pool := CalculatePool(bet, participations)
		dist := Distribute(pool.PrizePool, participations, winningOptionID)

		result = &SettlementResult{
			BetID:             betID,
			WinningOptionID:   winningOptionID,
			TotalPool:         pool.TotalPool,
			CommissionAmount:  pool.CommissionAmount,
			PrizePool:         pool.PrizePool,
			WinnersCount:      len(dist.Payouts),
			LosersCount:       len(participations) - len(dist.Payouts),
			DistributedAmount: dist.DistributedAmount,
			RetainedAmount:    dist.RetainedAmount,
			Payouts:           dist.Payouts,
		}

		if err := s.applyOutcomes(ctx, tx, actor, bet, participations, dist, winningOptionID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.UpdateBet(ctx, betID, map[string]interface{}{
			"status":             models.BetStatusCompleted,
			"winning_option_id":  winningOptionID,
			"total_pool":         pool.TotalPool,
			"commission_amount":  pool.CommissionAmount,
			"prize_pool":         pool.PrizePool,
			"distributed_amount": dist.DistributedAmount,
			"retained_amount":    dist.RetainedAmount,
			"completed_at":       now,
		}); err != nil {
			return fmt.Errorf("failed to complete bet: %w", err)
		}

		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionSettleBet, "BET", fmt.Sprint(betID), models.JSONB{
			"winning_option_id":  winningOptionID,
			"total_pool":         pool.TotalPool.StringFixed(money.Places),
			"commission_amount":  pool.CommissionAmount.StringFixed(money.Places),
			"distributed_amount": dist.DistributedAmount.StringFixed(money.Places),
			"retained_amount":    dist.RetainedAmount.StringFixed(money.Places),
			"winners":            len(dist.Payouts),
		})
	})
	if err != nil {
		err = translateDBError(err, "settle bet")
		s.Metrics.Settlement(resultLabel(err), decimal.Zero)
		s.Logger.Warn("settlement failed", zap.Uint("bet_id", betID), zap.Error(err))
		return nil, err
	}

	s.Metrics.Settlement("ok", result.DistributedAmount)
	for range result.Payouts {
		s.Metrics.LedgerEntry(string(models.LedgerEntryBetWin))
	}
	for i := 0; i < result.LosersCount; i++ {
		s.Metrics.LedgerEntry(string(models.LedgerEntryBetLoss))
	}
	s.Logger.Info("bet settled",
		zap.Uint("bet_id", betID),
		zap.Int("winning_option_id", winningOptionID),
		zap.String("total_pool", result.TotalPool.String()),
		zap.String("commission", result.CommissionAmount.String()),
		zap.String("distributed", result.DistributedAmount.String()),
		zap.String("retained", result.RetainedAmount.String()),
		zap.Int("winners", result.WinnersCount),
		zap.String("admin_id", actor.UserID),
	)
	s.afterCommit(ctx, betID, s.event(events.TypeBetSettled, betKey(betID), events.BetSettled{
		BetID:             betID,
		WinningOptionID:   winningOptionID,
		TotalPool:         result.TotalPool,
		CommissionAmount:  result.CommissionAmount,
		PrizePool:         result.PrizePool,
		WinnersCount:      result.WinnersCount,
		DistributedAmount: result.DistributedAmount,
		RetainedAmount:    result.RetainedAmount,
	})...)

	return result, nil
}

// applyOutcomes credits every winner and records a loss entry for every
// loser. Users are locked in ascending id order; a missing user aborts the
// whole settlement.
func (s *SettlementService) applyOutcomes(ctx context.Context, tx *repository.Repository, actor Actor,
	bet *models.Bet, participations []*models.Participation, dist *Distribution, winningOptionID int) error {

	if len(participations) == 0 {
		return nil
	}

	ids := make([]string, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.UserID)
	}
	users, err := tx.GetUsersForUpdate(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to lock participants: %w", err)
	}

	prizes := make(map[string]decimal.Decimal, len(dist.Payouts))
	for _, payout := range dist.Payouts {
		prizes[payout.UserID] = payout.Prize
	}

	actorID := actor.UserID
	for _, p := range participations {
		user, ok := users[p.UserID]
		if !ok {
			return &Error{Kind: KindNotFound, Message: fmt.Sprintf("user %s not found", p.UserID), Err: ErrUserNotFound}
		}

		change := BalanceChange{
			Type:           models.LedgerEntryBetLoss,
			Amount:         decimal.Zero,
			Description:    fmt.Sprintf("Lost bet: %s (stake %s)", bet.Title, p.Amount.StringFixed(money.Places)),
			ReferenceBetID: &bet.ID,
			ActorID:        &actorID,
		}
		if p.OptionID == winningOptionID {
			change.Type = models.LedgerEntryBetWin
			change.Amount = prizes[p.UserID]
			change.Description = "Prize from bet: " + bet.Title
		}

		if _, err := applyBalanceChange(ctx, tx, user, change); err != nil {
			return err
		}
	}
	return nil
}
