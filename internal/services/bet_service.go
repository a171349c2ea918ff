package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"betting-pool/internal/models"
	"betting-pool/internal/money"
	"betting-pool/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxCommissionRate = decimal.NewFromInt(100)

// BetService manages the bet catalogue: creation, edits and deletion.
type BetService struct {
	Deps
	defaultCommission decimal.Decimal
	validate          *validator.Validate
}

func NewBetService(deps Deps, defaultCommission decimal.Decimal) *BetService {
	return &BetService{
		Deps:              deps.withDefaults(),
		defaultCommission: defaultCommission,
		validate:          validator.New(),
	}
}

func validateCommission(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxCommissionRate) || !money.HasCents(rate) {
		return ErrInvalidCommission
	}
	return nil
}

// CreateBet opens a new bet. Options are numbered 1..n in the order given.
func (s *BetService) CreateBet(ctx context.Context, actor Actor, req models.CreateBetRequest) (*models.Bet, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, validationError(ErrInvalidBet, "invalid %s: failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, validationError(ErrInvalidBet, "%v", err)
	}

	options := models.NewBetOptions(req.Options)
	if err := options.Validate(); err != nil {
		return nil, validationError(ErrInvalidBet, "%v", err)
	}
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		key := strings.ToLower(opt.Text)
		if _, dup := seen[key]; dup {
			return nil, validationError(ErrInvalidBet, "duplicate option %q", opt.Text)
		}
		seen[key] = struct{}{}
	}

	rate := s.defaultCommission
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	if err := validateCommission(rate); err != nil {
		return nil, err
	}

	bet := &models.Bet{
		Title:          req.Title,
		Description:    req.Description,
		Options:        options,
		Status:         models.BetStatusActive,
		CommissionRate: rate,
		CreatedBy:      actor.UserID,
	}

	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateBet(ctx, bet); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionCreateBet, "BET", fmt.Sprint(bet.ID), models.JSONB{
			"title":           bet.Title,
			"options":         len(options),
			"commission_rate": rate.String(),
		})
	})
	if err != nil {
		return nil, translateDBError(err, "create bet")
	}

	s.Logger.Info("bet created", zap.Uint("bet_id", bet.ID), zap.String("admin_id", actor.UserID))
	return bet, nil
}

// GetBet retrieves a bet by ID
func (s *BetService) GetBet(ctx context.Context, betID uint) (*models.Bet, error) {
	bet, err := s.Repo.GetBet(ctx, betID)
	if err != nil {
		return nil, translateDBError(notFound(err, ErrBetNotFound), "get bet")
	}
	return bet, nil
}

// BetPage is one page of the bet list.
type BetPage struct {
	Bets   []*models.Bet `json:"bets"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListBets returns bets newest first, optionally filtered by status
func (s *BetService) ListBets(ctx context.Context, status models.BetStatus, limit, offset int) (*BetPage, error) {
	if status != "" && !status.Valid() {
		return nil, validationError(ErrInvalidInput, "unknown status %q", status)
	}
	limit, offset = pageBounds(limit, offset)
	bets, total, err := s.Repo.ListBets(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return &BetPage{Bets: bets, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateBet edits title, description or status. Completed bets are frozen
// and status only moves between active and locked.
func (s *BetService) UpdateBet(ctx context.Context, actor Actor, betID uint, req models.UpdateBetRequest) (*models.Bet, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	var bet *models.Bet
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		bet, err = tx.GetBetForUpdate(ctx, betID)
		if err != nil {
			return notFound(err, ErrBetNotFound)
		}
		if err := CheckOperation(bet, OpUpdate); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" || len(title) > 500 {
				return validationError(ErrInvalidBet, "title must be 1 to 500 characters")
			}
			updates["title"] = title
			bet.Title = title
		}
		if req.Description != nil {
			updates["description"] = strings.TrimSpace(*req.Description)
			bet.Description = strings.TrimSpace(*req.Description)
		}
		if req.Status != nil {
			if err := checkStatusTransition(bet.Status, *req.Status); err != nil {
				return err
			}
			updates["status"] = *req.Status
			bet.Status = *req.Status
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.UpdateBet(ctx, betID, updates); err != nil {
			return err
		}
		details := models.JSONB{}
		for k, v := range updates {
			details[k] = v
		}
		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionUpdateBet, "BET", fmt.Sprint(betID), details)
	})
	if err != nil {
		return nil, translateDBError(err, "update bet")
	}

	s.afterCommit(ctx, betID)
	return bet, nil
}

// UpdateCommission changes the commission rate while the bet is still open
// or locked. Settlement uses whatever rate is in place when it runs.
func (s *BetService) UpdateCommission(ctx context.Context, actor Actor, betID uint, rate decimal.Decimal) (*models.Bet, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validateCommission(rate); err != nil {
		return nil, err
	}

	var bet *models.Bet
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		bet, err = tx.GetBetForUpdate(ctx, betID)
		if err != nil {
			return notFound(err, ErrBetNotFound)
		}
		if err := CheckOperation(bet, OpChangeCommission); err != nil {
			return err
		}

		previous := bet.CommissionRate
		if err := tx.UpdateBet(ctx, betID, map[string]interface{}{"commission_rate": rate}); err != nil {
			return err
		}
		bet.CommissionRate = rate

		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionUpdateCommission, "BET", fmt.Sprint(betID), models.JSONB{
			"from": previous.String(),
			"to":   rate.String(),
		})
	})
	if err != nil {
		return nil, translateDBError(err, "update commission")
	}

	s.Logger.Info("commission updated",
		zap.Uint("bet_id", betID),
		zap.String("rate", rate.String()),
		zap.String("admin_id", actor.UserID),
	)
	s.afterCommit(ctx, betID)
	return bet, nil
}

// DeleteBet removes a bet nobody has staked on.
func (s *BetService) DeleteBet(ctx context.Context, actor Actor, betID uint) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}

	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		bet, err := tx.GetBetForUpdate(ctx, betID)
		if err != nil {
			return notFound(err, ErrBetNotFound)
		}
		if err := CheckOperation(bet, OpDelete); err != nil {
			return err
		}

		count, err := tx.CountParticipations(ctx, betID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrBetHasParticipations
		}

		if err := tx.DeleteBet(ctx, betID); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionDeleteBet, "BET", fmt.Sprint(betID), models.JSONB{
			"title":  bet.Title,
			"status": string(bet.Status),
		})
	})
	if err != nil {
		return translateDBError(err, "delete bet")
	}

	s.Logger.Info("bet deleted", zap.Uint("bet_id", betID), zap.String("admin_id", actor.UserID))
	s.afterCommit(ctx, betID)
	return nil
}
