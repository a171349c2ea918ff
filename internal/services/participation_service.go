package services

import (
	"context"
	"errors"

	"betting-pool/internal/events"
	"betting-pool/internal/models"
	"betting-pool/internal/money"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ParticipationService places and amends stakes.
type ParticipationService struct {
	Deps
	minimumStake decimal.Decimal
}

func NewParticipationService(deps Deps, minimumStake decimal.Decimal) *ParticipationService {
	return &ParticipationService{Deps: deps.withDefaults(), minimumStake: minimumStake}
}

// validateStake checks amount is a positive multiple of the minimum stake.
func (s *ParticipationService) validateStake(amount decimal.Decimal) error {
	if !money.IsMultipleOf(amount, s.minimumStake) {
		return validationError(ErrInvalidAmount, "amount must be a positive multiple of %s", s.minimumStake)
	}
	return nil
}

// lockOpenBet locks the bet row and checks op is allowed with optionID.
func lockOpenBet(ctx context.Context, tx *repository.Repository, betID uint, op Operation, optionID int) (*models.Bet, error) {
	bet, err := tx.GetBetForUpdate(ctx, betID)
	if err != nil {
		return nil, notFound(err, ErrBetNotFound)
	}
	if err := CheckOperation(bet, op); err != nil {
		return nil, err
	}
	if !bet.Options.Has(optionID) {
		return nil, ErrInvalidOption
	}
	return bet, nil
}

func lockActiveUser(ctx context.Context, tx *repository.Repository, userID string) (*models.User, error) {
	user, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if !user.Active() {
		return nil, ErrUserDeactivated
	}
	return user, nil
}

// Participate stakes amount on optionID of a bet. The participation row, the
// debit and the pool increment commit together.
func (s *ParticipationService) Participate(ctx context.Context, betID uint, userID string, optionID int, amount decimal.Decimal) (*models.Participation, error) {
	var participation *models.Participation
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		bet, err := lockOpenBet(ctx, tx, betID, OpParticipate, optionID)
		if err != nil {
			return err
		}
		if err := s.validateStake(amount); err != nil {
			return err
		}

		if _, err := tx.GetParticipation(ctx, betID, userID); err == nil {
			return ErrDuplicateParticipation
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user, err := lockActiveUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		if _, err := applyBalanceChange(ctx, tx, user, BalanceChange{
			Amount:         amount.Neg(),
			Type:           models.LedgerEntryDebit,
			Description:    "Bet participation: " + bet.Title,
			ReferenceBetID: &bet.ID,
		}); err != nil {
			return err
		}

		participation = &models.Participation{
			BetID:    betID,
			UserID:   userID,
			OptionID: optionID,
			Amount:   amount,
		}
		if err := tx.CreateParticipation(ctx, participation); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateParticipation
			}
			return err
		}

		return tx.AddToBetPool(ctx, betID, amount)
	})
	err = translateDBError(err, "participate")
	s.Metrics.Participation("participate", resultLabel(err))
	if err != nil {
		return nil, err
	}

	s.Metrics.LedgerEntry(string(models.LedgerEntryDebit))
	s.Logger.Info("participation placed",
		zap.Uint("bet_id", betID),
		zap.String("user_id", userID),
		zap.Int("option_id", optionID),
		zap.String("amount", amount.String()),
	)
	s.afterCommit(ctx, betID, s.event(events.TypeParticipationPlaced, betKey(betID), events.ParticipationPlaced{
		BetID:    betID,
		UserID:   userID,
		OptionID: optionID,
		Amount:   amount,
	})...)

	return participation, nil
}

// EditParticipation moves an existing stake to optionID and amount. The
// difference is debited or refunded in the same transaction.
func (s *ParticipationService) EditParticipation(ctx context.Context, betID uint, userID string, optionID int, amount decimal.Decimal) (*models.Participation, error) {
	var (
		participation *models.Participation
		old           models.Participation
		entryType     models.LedgerEntryType
	)
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		bet, err := lockOpenBet(ctx, tx, betID, OpEditParticipation, optionID)
		if err != nil {
			return err
		}
		if err := s.validateStake(amount); err != nil {
			return err
		}

		participation, err = tx.GetParticipationForUpdate(ctx, betID, userID)
		if err != nil {
			return notFound(err, ErrParticipationNotFound)
		}
		old = *participation

		user, err := lockActiveUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		delta := amount.Sub(participation.Amount)
		if !delta.IsZero() {
			entryType = models.LedgerEntryCredit
			description := "Bet participation decrease: " + bet.Title
			if delta.IsPositive() {
				entryType = models.LedgerEntryDebit
				description = "Bet participation increase: " + bet.Title
			}
			if _, err := applyBalanceChange(ctx, tx, user, BalanceChange{
				Amount:         delta.Neg(),
				Type:           entryType,
				Description:    description,
				ReferenceBetID: &bet.ID,
			}); err != nil {
				return err
			}
		}

		if err := tx.UpdateParticipation(ctx, participation.ID, optionID, amount); err != nil {
			return err
		}
		participation.OptionID = optionID
		participation.Amount = amount

		if delta.IsZero() {
			return nil
		}
		return tx.AddToBetPool(ctx, betID, delta)
	})
	err = translateDBError(err, "edit participation")
	s.Metrics.Participation("edit", resultLabel(err))
	if err != nil {
		return nil, err
	}

	if entryType != "" {
		s.Metrics.LedgerEntry(string(entryType))
	}
	s.Logger.Info("participation amended",
		zap.Uint("bet_id", betID),
		zap.String("user_id", userID),
		zap.Int("option_id", optionID),
		zap.String("old_amount", old.Amount.String()),
		zap.String("new_amount", amount.String()),
	)
	s.afterCommit(ctx, betID, s.event(events.TypeParticipationAmended, betKey(betID), events.ParticipationAmended{
		BetID:       betID,
		UserID:      userID,
		OldOptionID: old.OptionID,
		NewOptionID: optionID,
		OldAmount:   old.Amount,
		NewAmount:   amount,
	})...)

	return participation, nil
}

// GetParticipation returns the caller's stake on a bet.
func (s *ParticipationService) GetParticipation(ctx context.Context, betID uint, userID string) (*models.Participation, error) {
	p, err := s.Repo.GetParticipation(ctx, betID, userID)
	if err != nil {
		return nil, translateDBError(notFound(err, ErrParticipationNotFound), "get participation")
	}
	return p, nil
}
