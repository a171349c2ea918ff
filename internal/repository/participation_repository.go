package repository

import (
	"context"

	"betting-pool/internal/models"

	"github.com/shopspring/decimal"
)

// CreateParticipation inserts a stake. The (bet_id, user_id) unique index
// rejects a second row for the same pair.
func (r *Repository) CreateParticipation(ctx context.Context, p *models.Participation) error {
	return r.db.WithContext(ctx).Omit("User").Create(p).Error
}

// GetParticipation retrieves the stake of a user on a bet
func (r *Repository) GetParticipation(ctx context.Context, betID uint, userID string) (*models.Participation, error) {
	var p models.Participation
	err := r.db.WithContext(ctx).
		Where("bet_id = ? AND user_id = ?", betID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipationForUpdate retrieves a stake and locks the row
func (r *Repository) GetParticipationForUpdate(ctx context.Context, betID uint, userID string) (*models.Participation, error) {
	var p models.Participation
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Where("bet_id = ? AND user_id = ?", betID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipations returns every stake on a bet, ordered by user id
func (r *Repository) ListParticipations(ctx context.Context, betID uint) ([]*models.Participation, error) {
	var participations []*models.Participation
	err := r.db.WithContext(ctx).
		Where("bet_id = ?", betID).
		Order("user_id ASC").
		Find(&participations).Error
	if err != nil {
		return nil, err
	}
	return participations, nil
}

// ListUserParticipations returns a user's stakes, newest first
func (r *Repository) ListUserParticipations(ctx context.Context, userID string) ([]*models.Participation, error) {
	var participations []*models.Participation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, err
	}
	return participations, nil
}

// CountParticipations returns the number of stakes on a bet
func (r *Repository) CountParticipations(ctx context.Context, betID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("bet_id = ?", betID).
		Count(&count).Error
	return count, err
}

// UpdateParticipation moves a stake to a new option and amount
func (r *Repository) UpdateParticipation(ctx context.Context, id uint, optionID int, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"option_id": optionID,
			"amount":    amount,
		}).Error
}
