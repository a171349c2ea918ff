package repository

import (
	"context"

	"betting-pool/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateBet inserts a new bet
func (r *Repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Omit("Participations").Create(bet).Error
}

// GetBet retrieves a bet by ID
func (r *Repository) GetBet(ctx context.Context, betID uint) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("id = ?", betID).First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// GetBetForUpdate retrieves a bet and locks its row. Every money-moving
// operation on a bet takes this lock first.
func (r *Repository) GetBetForUpdate(ctx context.Context, betID uint) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Where("id = ?", betID).
		First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// ListBets retrieves bets, optionally filtered by status, newest first
func (r *Repository) ListBets(ctx context.Context, status models.BetStatus, limit, offset int) ([]*models.Bet, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Bet{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bets []*models.Bet
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&bets).Error
	if err != nil {
		return nil, 0, err
	}

	return bets, total, nil
}

// ListAllBets returns every bet, ordered by id
func (r *Repository) ListAllBets(ctx context.Context) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).Order("id ASC").Find(&bets).Error
	if err != nil {
		return nil, err
	}
	return bets, nil
}

// UpdateBet writes the given columns of a bet
func (r *Repository) UpdateBet(ctx context.Context, betID uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ?", betID).
		Updates(updates).Error
}

// AddToBetPool shifts the cached total pool by delta
func (r *Repository) AddToBetPool(ctx context.Context, betID uint, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("id = ?", betID).
		Update("total_pool", gorm.Expr("total_pool + ?", delta)).Error
}

// DeleteBet removes a bet row
func (r *Repository) DeleteBet(ctx context.Context, betID uint) error {
	return r.db.WithContext(ctx).Delete(&models.Bet{}, betID).Error
}
