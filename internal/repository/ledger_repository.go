package repository

import (
	"context"

	"betting-pool/internal/models"
)

// CreateLedgerEntry appends an entry to the payment history
func (r *Repository) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListLedgerEntries returns a page of a user's history, newest first
func (r *Repository) ListLedgerEntries(ctx context.Context, userID string, limit, offset int) ([]*models.LedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*models.LedgerEntry
	err := query.
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListUserLedger returns a user's whole history in insertion order
func (r *Repository) ListUserLedger(ctx context.Context, userID string) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBetLedger returns the entries that reference a bet
func (r *Repository) ListBetLedger(ctx context.Context, betID uint) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference_bet_id = ?", betID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
