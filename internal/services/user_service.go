package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"betting-pool/internal/models"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Identity is what the auth layer knows about the caller.
type Identity struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
}

// UserService handles user-related business logic
type UserService struct {
	Deps
	initialBalance decimal.Decimal
}

// NewUserService creates a new UserService
func NewUserService(deps Deps, initialBalance decimal.Decimal) *UserService {
	return &UserService{Deps: deps.withDefaults(), initialBalance: initialBalance}
}

// EnsureUser returns the account behind id, creating it on first sight.
// A starting balance is granted through the ledger so that the balance
// always equals the sum of entries.
func (s *UserService) EnsureUser(ctx context.Context, id Identity) (*models.User, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}

	// most calls find the account current; only creation and refresh lock it
	existing, err := s.Repo.GetUser(ctx, id.UserID)
	if err == nil && !needsRefresh(existing, id) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateDBError(err, "ensure user")
	}

	var user *models.User
	var created bool
	err = s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		user, err = tx.GetUserForUpdate(ctx, id.UserID)
		if err == nil {
			return s.refreshProfile(ctx, tx, user, id)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = &models.User{
			ID:      id.UserID,
			Name:    displayName(id),
			Email:   id.Email,
			Balance: decimal.Zero,
			IsAdmin: id.IsAdmin,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		created = true

		if !s.initialBalance.IsPositive() {
			return nil
		}
		_, err = applyBalanceChange(ctx, tx, user, BalanceChange{
			Amount:      s.initialBalance,
			Type:        models.LedgerEntryCredit,
			Description: "Initial balance",
		})
		return err
	})
	if err != nil && isUniqueViolation(err) {
		// lost the race against another first request for the same user
		return s.GetUser(ctx, id.UserID)
	}
	if err != nil {
		return nil, translateDBError(err, "ensure user")
	}

	if created {
		s.Logger.Info("user created", zap.String("user_id", user.ID))
		if s.initialBalance.IsPositive() {
			s.Metrics.LedgerEntry(string(models.LedgerEntryCredit))
		}
	}
	return user, nil
}

// needsRefresh reports whether the token carries a newer email or admin
// flag than the stored account.
func needsRefresh(user *models.User, id Identity) bool {
	if !user.Active() {
		return false
	}
	return (id.Email != "" && id.Email != user.Email) || id.IsAdmin != user.IsAdmin
}

func (s *UserService) refreshProfile(ctx context.Context, tx *repository.Repository, user *models.User, id Identity) error {
	if !needsRefresh(user, id) {
		return nil
	}
	updates := map[string]interface{}{}
	if id.Email != "" && id.Email != user.Email {
		updates["email"] = id.Email
		user.Email = id.Email
	}
	if id.IsAdmin != user.IsAdmin {
		updates["is_admin"] = id.IsAdmin
		user.IsAdmin = id.IsAdmin
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.UpdateUserProfile(ctx, user.ID, updates)
}

func displayName(id Identity) string {
	if name := strings.TrimSpace(id.Name); name != "" {
		return name
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return "User"
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, translateDBError(notFound(err, ErrUserNotFound), "get user")
	}
	return user, nil
}

// UpdateProfile changes the display name of the caller
func (s *UserService) UpdateProfile(ctx context.Context, userID string, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return nil, validationError(ErrInvalidInput, "name must be 1 to 255 characters")
	}

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		user, err = lockActiveUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.UpdateUserProfile(ctx, userID, map[string]interface{}{"name": name}); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		user.Name = name
		return nil
	})
	if err != nil {
		return nil, translateDBError(err, "update profile")
	}
	return user, nil
}

// GetUserParticipations returns the bets a user has staked on
func (s *UserService) GetUserParticipations(ctx context.Context, userID string) ([]*models.Participation, error) {
	participations, err := s.Repo.ListUserParticipations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}
	return participations, nil
}
