package repository

import (
	"context"
	"time"

	"betting-pool/internal/models"

	"github.com/shopspring/decimal"
)

// CreateAdminLog records an admin action
func (r *Repository) CreateAdminLog(ctx context.Context, entry *models.AdminLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAdminLogs returns recent admin actions, newest first
func (r *Repository) ListAdminLogs(ctx context.Context, limit, offset int) ([]*models.AdminLog, error) {
	var logs []*models.AdminLog
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountSince counts rows of model, and those created at or after since
func (r *Repository) CountSince(ctx context.Context, model interface{}, since time.Time) (total int64, recent int64, err error) {
	if err = r.db.WithContext(ctx).Model(model).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(model).Where("created_at >= ?", since).Count(&recent).Error; err != nil {
		return 0, 0, err
	}
	return total, recent, nil
}

// CountBetsByStatus returns the number of bets per status
func (r *Repository) CountBetsByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// BetTotals holds the summed money columns over all bets
type BetTotals struct {
	TotalPool   decimal.Decimal
	PrizePool   decimal.Decimal
	Commission  decimal.Decimal
	Distributed decimal.Decimal
}

// SumBetTotals adds up the money columns of every bet
func (r *Repository) SumBetTotals(ctx context.Context) (*BetTotals, error) {
	var row struct {
		TotalPool   decimal.NullDecimal
		PrizePool   decimal.NullDecimal
		Commission  decimal.NullDecimal
		Distributed decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("SUM(total_pool) AS total_pool, SUM(prize_pool) AS prize_pool, " +
			"SUM(commission_amount) AS commission, SUM(distributed_amount) AS distributed").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &BetTotals{
		TotalPool:   row.TotalPool.Decimal,
		PrizePool:   row.PrizePool.Decimal,
		Commission:  row.Commission.Decimal,
		Distributed: row.Distributed.Decimal,
	}, nil
}

// ListUserSignupsSince returns the creation time of every user created at or after since
func (r *Repository) ListUserSignupsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

// BetCommission is the commission taken on one bet
type BetCommission struct {
	CreatedAt        time.Time
	CommissionAmount decimal.Decimal
}

// ListBetCommissionsSince returns the commission of every bet created at or after since
func (r *Repository) ListBetCommissionsSince(ctx context.Context, since time.Time) ([]BetCommission, error) {
	var rows []BetCommission
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("created_at, commission_amount").
		Where("created_at >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TopParticipants ranks users by participation count, then by amount staked
func (r *Repository) TopParticipants(ctx context.Context, limit int) ([]models.TopParticipant, error) {
	var rows []models.TopParticipant
	err := r.db.WithContext(ctx).
		Table("bet_participations AS bp").
		Select("bp.user_id AS user_id, u.name AS name, COUNT(bp.id) AS participations, SUM(bp.amount) AS total_amount").
		Joins("JOIN users u ON u.id = bp.user_id").
		Group("bp.user_id, u.name").
		Order("participations DESC, total_amount DESC, user_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
