package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"betting-pool/internal/models"
	"betting-pool/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Discrepancy is one failed accounting check.
type Discrepancy struct {
	Kind     string `json:"kind"`
	UserID   string `json:"user_id,omitempty"`
	BetID    uint   `json:"bet_id,omitempty"`
	EntryID  uint   `json:"entry_id,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

const (
	DiscrepancyEntrySnapshot = "entry_snapshot"
	DiscrepancyEntryChain    = "entry_chain"
	DiscrepancyUserBalance   = "user_balance"
	DiscrepancyBetPool       = "bet_pool"
	DiscrepancyBetPayout     = "bet_payout"
	DiscrepancyBetSplit      = "bet_split"
	DiscrepancyBetWinnings   = "bet_winnings"
)

// ReconciliationReport is the outcome of one audit pass.
type ReconciliationReport struct {
	StartedAt      time.Time     `json:"started_at"`
	Duration       string        `json:"duration"`
	UsersChecked   int           `json:"users_checked"`
	EntriesChecked int           `json:"entries_checked"`
	BetsChecked    int           `json:"bets_checked"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
}

// OK reports whether the pass found nothing wrong.
func (r *ReconciliationReport) OK() bool {
	return len(r.Discrepancies) == 0
}

// ReconciliationService audits the ledger and the bet caches. It never
// writes; problems are reported for a human to look at.
type ReconciliationService struct {
	Deps
}

func NewReconciliationService(deps Deps) *ReconciliationService {
	return &ReconciliationService{Deps: deps.withDefaults()}
}

// Run performs a full audit pass.
func (s *ReconciliationService) Run(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{StartedAt: time.Now().UTC(), Discrepancies: []Discrepancy{}}

	err := s.checkUsers(ctx, report)
	if err == nil {
		err = s.checkBets(ctx, report)
	}
	report.Duration = time.Since(report.StartedAt).String()

	s.Metrics.Reconciled(len(report.Discrepancies), err)
	if err != nil {
		s.Logger.Error("reconciliation failed", zap.Error(err))
		return nil, err
	}

	if report.OK() {
		s.Logger.Info("reconciliation clean",
			zap.Int("users", report.UsersChecked),
			zap.Int("entries", report.EntriesChecked),
			zap.Int("bets", report.BetsChecked),
		)
	} else {
		for _, d := range report.Discrepancies {
			s.Logger.Error("reconciliation discrepancy",
				zap.String("kind", d.Kind),
				zap.String("user_id", d.UserID),
				zap.Uint("bet_id", d.BetID),
				zap.Uint("entry_id", d.EntryID),
				zap.String("expected", d.Expected),
				zap.String("actual", d.Actual),
			)
		}
	}
	return report, nil
}

// RunAsAdmin is Run gated on the caller being an admin.
func (s *ReconciliationService) RunAsAdmin(ctx context.Context, actor Actor) (*ReconciliationReport, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

func (s *ReconciliationService) checkUsers(ctx context.Context, report *ReconciliationReport) error {
	users, err := s.Repo.ListAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, listed := range users {
		// the row lock holds off balance changes while the ledger is read
		err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
			user, err := tx.GetUserForUpdate(ctx, listed.ID)
			if err != nil {
				return err
			}
			entries, err := tx.ListUserLedger(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to list ledger for %s: %w", user.ID, err)
			}
			report.UsersChecked++
			report.EntriesChecked += len(entries)
			report.Discrepancies = append(report.Discrepancies, auditLedger(user, entries)...)
			return nil
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// auditLedger checks one user's history: every entry is self-consistent,
// entries chain from zero, and the balance is their sum.
func auditLedger(user *models.User, entries []*models.LedgerEntry) []Discrepancy {
	var found []Discrepancy
	running := decimal.Zero

	for _, e := range entries {
		if !e.Consistent() {
			found = append(found, Discrepancy{
				Kind:     DiscrepancyEntrySnapshot,
				UserID:   user.ID,
				EntryID:  e.ID,
				Expected: e.BalanceBefore.Add(e.Amount).String(),
				Actual:   e.BalanceAfter.String(),
			})
		}
		if !e.BalanceBefore.Equal(running) {
			found = append(found, Discrepancy{
				Kind:     DiscrepancyEntryChain,
				UserID:   user.ID,
				EntryID:  e.ID,
				Expected: running.String(),
				Actual:   e.BalanceBefore.String(),
			})
		}
		running = e.BalanceAfter
	}

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	if !user.Balance.Equal(sum) {
		found = append(found, Discrepancy{
			Kind:     DiscrepancyUserBalance,
			UserID:   user.ID,
			Expected: sum.String(),
			Actual:   user.Balance.String(),
		})
	}
	return found
}

func (s *ReconciliationService) checkBets(ctx context.Context, report *ReconciliationReport) error {
	bets, err := s.Repo.ListAllBets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bets: %w", err)
	}

	for _, listed := range bets {
		err := s.Repo.Transaction(ctx, func(tx *repository.Repository) error {
			bet, err := tx.GetBetForUpdate(ctx, listed.ID)
			if err != nil {
				return err
			}
			participations, err := tx.ListParticipations(ctx, bet.ID)
			if err != nil {
				return fmt.Errorf("failed to list participations for bet %d: %w", bet.ID, err)
			}
			var entries []*models.LedgerEntry
			if bet.Completed() {
				if entries, err = tx.ListBetLedger(ctx, bet.ID); err != nil {
					return fmt.Errorf("failed to list ledger for bet %d: %w", bet.ID, err)
				}
			}
			report.BetsChecked++
			report.Discrepancies = append(report.Discrepancies, auditBet(bet, participations, entries)...)
			return nil
		})
		// deleted since it was listed
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// auditBet checks the cached pool against the stakes and, for completed
// bets, that the split adds back up to the pool and matches the winnings
// actually credited.
func auditBet(bet *models.Bet, participations []*models.Participation, entries []*models.LedgerEntry) []Discrepancy {
	var found []Discrepancy

	stakes := decimal.Zero
	for _, p := range participations {
		stakes = stakes.Add(p.Amount)
	}
	if !bet.TotalPool.Equal(stakes) {
		found = append(found, Discrepancy{
			Kind:     DiscrepancyBetPool,
			BetID:    bet.ID,
			Expected: stakes.String(),
			Actual:   bet.TotalPool.String(),
		})
	}

	if !bet.Completed() {
		return found
	}

	paidOut := bet.DistributedAmount.Add(bet.RetainedAmount)
	if !paidOut.Equal(bet.PrizePool) {
		found = append(found, Discrepancy{
			Kind:     DiscrepancyBetPayout,
			BetID:    bet.ID,
			Expected: bet.PrizePool.String(),
			Actual:   paidOut.String(),
		})
	}
	split := bet.PrizePool.Add(bet.CommissionAmount)
	if !split.Equal(bet.TotalPool) {
		found = append(found, Discrepancy{
			Kind:     DiscrepancyBetSplit,
			BetID:    bet.ID,
			Expected: bet.TotalPool.String(),
			Actual:   split.String(),
		})
	}

	credited := decimal.Zero
	for _, e := range entries {
		if e.Type == models.LedgerEntryBetWin {
			credited = credited.Add(e.Amount)
		}
	}
	if !credited.Equal(bet.DistributedAmount) {
		found = append(found, Discrepancy{
			Kind:     DiscrepancyBetWinnings,
			BetID:    bet.ID,
			Expected: bet.DistributedAmount.String(),
			Actual:   credited.String(),
		})
	}
	return found
}
