package services

import (
	"context"
	"fmt"
	"time"

	"betting-pool/internal/models"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminService serves the admin dashboard: platform statistics, user
// management and the audit log.
type AdminService struct {
	Deps
}

func NewAdminService(deps Deps) *AdminService {
	return &AdminService{Deps: deps.withDefaults()}
}

// logAdminAction records an admin action inside the caller's transaction
func logAdminAction(ctx context.Context, tx *repository.Repository, adminID string, action string,
	resourceType string, resourceID string, details models.JSONB) error {

	adminLog := models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}

	if err := tx.CreateAdminLog(ctx, &adminLog); err != nil {
		return fmt.Errorf("failed to log admin action: %w", err)
	}
	return nil
}

// GetAdminLogs returns admin activity logs
func (s *AdminService) GetAdminLogs(ctx context.Context, actor Actor, limit int, offset int) ([]*models.AdminLog, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	limit, offset = pageBounds(limit, offset)
	logs, err := s.Repo.ListAdminLogs(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin logs: %w", err)
	}
	return logs, nil
}

// GetPlatformStats returns platform totals, plus counts of what was created since the given time
func (s *AdminService) GetPlatformStats(ctx context.Context, actor Actor, since time.Time) (*models.PlatformStats, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	stats := &models.PlatformStats{Since: since}
	var err error

	if stats.TotalUsers, stats.RecentUsers, err = s.Repo.CountSince(ctx, &models.User{}, since); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.TotalBets, stats.RecentBets, err = s.Repo.CountSince(ctx, &models.Bet{}, since); err != nil {
		return nil, fmt.Errorf("failed to count bets: %w", err)
	}
	if stats.TotalParticipations, stats.RecentParticipations, err = s.Repo.CountSince(ctx, &models.Participation{}, since); err != nil {
		return nil, fmt.Errorf("failed to count participations: %w", err)
	}
	if stats.BetsByStatus, err = s.Repo.CountBetsByStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to count bets by status: %w", err)
	}

	totals, err := s.Repo.SumBetTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum bet totals: %w", err)
	}
	stats.TotalPoolVolume = totals.TotalPool
	stats.TotalPrizePool = totals.PrizePool
	stats.TotalCommission = totals.Commission
	stats.TotalDistributed = totals.Distributed

	return stats, nil
}

// GetAnalytics returns monthly user signups and commission for the last
// months calendar months (current one included), bets per status and the
// ten most active participants. Months are UTC.
func (s *AdminService) GetAnalytics(ctx context.Context, actor Actor, months int) (*models.PlatformAnalytics, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	switch {
	case months <= 0:
		months = 6
	case months > 24:
		months = 24
	}

	now := time.Now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	keys := make([]string, months)
	for i := range keys {
		keys[i] = since.AddDate(0, i, 0).Format(monthLayout)
	}

	signups, err := s.Repo.ListUserSignupsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	counts := make(map[string]int64, months)
	for _, t := range signups {
		counts[t.UTC().Format(monthLayout)]++
	}

	commissions, err := s.Repo.ListBetCommissionsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	amounts := make(map[string]decimal.Decimal, months)
	for _, c := range commissions {
		key := c.CreatedAt.UTC().Format(monthLayout)
		amounts[key] = amounts[key].Add(c.CommissionAmount)
	}

	analytics := &models.PlatformAnalytics{
		Since:           since,
		UserGrowth:      make([]models.MonthlyCount, 0, months),
		CommissionTrend: make([]models.MonthlyAmount, 0, months),
	}
	for _, key := range keys {
		analytics.UserGrowth = append(analytics.UserGrowth, models.MonthlyCount{Month: key, Count: counts[key]})
		analytics.CommissionTrend = append(analytics.CommissionTrend, models.MonthlyAmount{Month: key, Amount: amounts[key]})
	}

	if analytics.BetsByStatus, err = s.Repo.CountBetsByStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to count bets by status: %w", err)
	}
	if analytics.TopUsers, err = s.Repo.TopParticipants(ctx, 10); err != nil {
		return nil, fmt.Errorf("failed to rank participants: %w", err)
	}
	return analytics, nil
}

const monthLayout = "2006-01"

// UserPage is one page of the admin user list.
type UserPage struct {
	Users  []*models.User `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListUsers returns users with optional filtering
func (s *AdminService) ListUsers(ctx context.Context, actor Actor, search string, limit int, offset int) (*UserPage, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	limit, offset = pageBounds(limit, offset)
	users, total, err := s.Repo.ListUsers(ctx, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &UserPage{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// DeactivateUser soft-removes an account. The row and its ledger stay.
func (s *AdminService) DeactivateUser(ctx context.Context, actor Actor, userID string) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	if userID == actor.UserID {
		return validationError(ErrInvalidInput, "admins cannot deactivate their own account")
	}

	err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if !user.Active() {
			return ErrUserDeactivated
		}
		if err := tx.DeactivateUser(ctx, userID, time.Now().UTC()); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, actor.UserID, models.AdminActionDeactivateUser, "USER", userID, models.JSONB{
			"balance": user.Balance.String(),
		})
	})
	if err != nil {
		return translateDBError(err, "deactivate user")
	}

	s.Logger.Info("user deactivated", zap.String("user_id", userID), zap.String("admin_id", actor.UserID))
	return nil
}
