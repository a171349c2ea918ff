package services

import (
	"context"
	"fmt"
	"strings"

	"betting-pool/internal/events"
	"betting-pool/internal/models"
	"betting-pool/internal/money"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceChange describes one ledger movement. Amount is signed.
type BalanceChange struct {
	Amount         decimal.Decimal
	Type           models.LedgerEntryType
	Description    string
	ReferenceBetID *uint
	ActorID        *string
}

// BalanceResult reports the snapshots written for a change.
type BalanceResult struct {
	BalanceBefore decimal.Decimal     `json:"balance_before"`
	BalanceAfter  decimal.Decimal     `json:"balance_after"`
	Entry         *models.LedgerEntry `json:"entry"`
}

// applyBalanceChange moves user's balance by change.Amount and appends the
// matching ledger entry. user must have been read FOR UPDATE through tx; its
// Balance is advanced in place so later changes in the same transaction
// chain from it.
func applyBalanceChange(ctx context.Context, tx *repository.Repository, user *models.User, change BalanceChange) (*BalanceResult, error) {
	if !money.HasCents(change.Amount) {
		return nil, validationError(ErrInvalidAmount, "amount %s has more than two decimal places", change.Amount)
	}

	before := user.Balance
	after := before.Add(change.Amount)
	if after.IsNegative() {
		return nil, ErrInsufficientBalance
	}

	if !change.Amount.IsZero() {
		if err := tx.SetUserBalance(ctx, user.ID, after); err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}
	}

	entry := &models.LedgerEntry{
		UserID:         user.ID,
		Type:           change.Type,
		Amount:         change.Amount,
		Description:    change.Description,
		ReferenceBetID: change.ReferenceBetID,
		BalanceBefore:  before,
		BalanceAfter:   after,
		CreatedBy:      change.ActorID,
	}
	if err := tx.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	user.Balance = after
	return &BalanceResult{BalanceBefore: before, BalanceAfter: after, Entry: entry}, nil
}

// LedgerService exposes balance adjustments and payment history.
type LedgerService struct {
	Deps
}

func NewLedgerService(deps Deps) *LedgerService {
	return &LedgerService{Deps: deps.withDefaults()}
}

// AdjustBalanceInput is an admin credit or debit.
type AdjustBalanceInput struct {
	Type        models.LedgerEntryType
	Amount      decimal.Decimal
	Description string
}

// AdjustBalance credits or debits a user on behalf of an admin.
func (s *LedgerService) AdjustBalance(ctx context.Context, actor Actor, userID string, in AdjustBalanceInput) (*BalanceResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	var signed decimal.Decimal
	switch in.Type {
	case models.LedgerEntryCredit:
		signed = in.Amount
	case models.LedgerEntryDebit:
		signed = in.Amount.Neg()
	default:
		return nil, validationError(ErrInvalidInput, "adjustment type must be credit or debit")
	}
	if !in.Amount.IsPositive() || !money.HasCents(in.Amount) {
		return nil, validationError(ErrInvalidAmount, "amount must be positive with at most two decimal places")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, validationError(ErrInvalidInput, "description is required")
	}

	actorID := actor.UserID
	var result *BalanceResult
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}

		result, err = applyBalanceChange(ctx, tx, user, BalanceChange{
			Amount:      signed,
			Type:        models.LedgerEntryAdminAdjustment,
			Description: "Admin adjustment: " + description,
			ActorID:     &actorID,
		})
		if err != nil {
			return err
		}

		return logAdminAction(ctx, tx, actorID, models.AdminActionAdjustBalance, "USER", userID, models.JSONB{
			"type":           string(in.Type),
			"amount":         in.Amount.StringFixed(money.Places),
			"description":    description,
			"balance_before": result.BalanceBefore.StringFixed(money.Places),
			"balance_after":  result.BalanceAfter.StringFixed(money.Places),
		})
	})
	if err != nil {
		return nil, translateDBError(err, "adjust balance")
	}

	s.Metrics.LedgerEntry(string(models.LedgerEntryAdminAdjustment))
	s.Logger.Info("balance adjusted",
		zap.String("user_id", userID),
		zap.String("admin_id", actorID),
		zap.String("type", string(in.Type)),
		zap.String("amount", in.Amount.String()),
	)
	s.afterCommit(ctx, 0, s.event(events.TypeBalanceAdjusted, userID, events.BalanceAdjusted{
		UserID:        userID,
		Type:          string(in.Type),
		Amount:        in.Amount,
		BalanceBefore: result.BalanceBefore,
		BalanceAfter:  result.BalanceAfter,
		ActorID:       actorID,
	})...)

	return result, nil
}

// LedgerPage is one page of a user's payment history.
type LedgerPage struct {
	Entries []*models.LedgerEntry `json:"entries"`
	Total   int64                 `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// GetLedger returns a user's payment history, newest first.
func (s *LedgerService) GetLedger(ctx context.Context, userID string, limit, offset int) (*LedgerPage, error) {
	limit, offset = pageBounds(limit, offset)
	entries, total, err := s.Repo.ListLedgerEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	return &LedgerPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}
