package services

import (
	"errors"
	"testing"
	"time"
)

func TestGetPlatformStats(t *testing.T) {
	h := newHarness(t)
	since := time.Now().Add(-time.Hour)
	h.createUser("alice", "1000")
	h.createUser("bob", "1000")
	settled := h.createBet("10", "Heads", "Tails")
	h.createBet("10", "Up", "Down")
	h.participate(settled.ID, "alice", 1, "100")
	h.participate(settled.ID, "bob", 2, "100")
	if _, err := h.settlement.Settle(h.ctx, adminActor, settled.ID, 1); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	stats, err := h.admin.GetPlatformStats(h.ctx, adminActor, since)
	if err != nil {
		t.Fatalf("GetPlatformStats failed: %v", err)
	}

	if stats.TotalUsers != 2 || stats.RecentUsers != 2 {
		t.Errorf("expected 2 users, got %d/%d", stats.TotalUsers, stats.RecentUsers)
	}
	if stats.TotalBets != 2 || stats.BetsByStatus["completed"] != 1 || stats.BetsByStatus["active"] != 1 {
		t.Errorf("unexpected bet counts: %d %v", stats.TotalBets, stats.BetsByStatus)
	}
	if stats.TotalParticipations != 2 {
		t.Errorf("expected 2 participations, got %d", stats.TotalParticipations)
	}
	assertDecimal(t, "pool volume", stats.TotalPoolVolume, "200")
	assertDecimal(t, "commission", stats.TotalCommission, "20")
	assertDecimal(t, "distributed", stats.TotalDistributed, "180")

	if _, err := h.admin.GetPlatformStats(h.ctx, Actor{UserID: "alice"}, since); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGetAnalytics(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "1000")
	h.createUser("bob", "1000")
	settled := h.createBet("10", "Heads", "Tails")
	open := h.createBet("10", "Up", "Down")
	h.participate(settled.ID, "alice", 1, "100")
	h.participate(settled.ID, "bob", 2, "100")
	h.participate(open.ID, "alice", 1, "50")
	if _, err := h.settlement.Settle(h.ctx, adminActor, settled.ID, 1); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	analytics, err := h.admin.GetAnalytics(h.ctx, adminActor, 3)
	if err != nil {
		t.Fatalf("GetAnalytics failed: %v", err)
	}

	if len(analytics.UserGrowth) != 3 || len(analytics.CommissionTrend) != 3 {
		t.Fatalf("expected 3 months, got %d/%d", len(analytics.UserGrowth), len(analytics.CommissionTrend))
	}
	current := time.Now().UTC().Format("2006-01")
	if last := analytics.UserGrowth[2]; last.Month != current || last.Count != 2 {
		t.Errorf("expected 2 users in %s, got %+v", current, last)
	}
	if first := analytics.UserGrowth[0]; first.Count != 0 {
		t.Errorf("expected no users in %s, got %d", first.Month, first.Count)
	}
	assertDecimal(t, "current commission", analytics.CommissionTrend[2].Amount, "20")
	assertDecimal(t, "earlier commission", analytics.CommissionTrend[0].Amount, "0")
	if analytics.BetsByStatus["completed"] != 1 || analytics.BetsByStatus["active"] != 1 {
		t.Errorf("unexpected bet counts: %v", analytics.BetsByStatus)
	}

	if len(analytics.TopUsers) != 2 {
		t.Fatalf("expected 2 ranked users, got %d", len(analytics.TopUsers))
	}
	top := analytics.TopUsers[0]
	if top.UserID != "alice" || top.Participations != 2 {
		t.Errorf("expected alice first with 2 participations, got %+v", top)
	}
	assertDecimal(t, "alice staked", top.TotalAmount, "150")
	if analytics.TopUsers[1].UserID != "bob" {
		t.Errorf("expected bob second, got %s", analytics.TopUsers[1].UserID)
	}

	if _, err := h.admin.GetAnalytics(h.ctx, Actor{UserID: "alice"}, 3); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestListUsersSearch(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "0")
	h.createUser("bob", "0")

	page, err := h.admin.ListUsers(h.ctx, adminActor, "ali", 10, 0)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if page.Total != 1 || page.Users[0].ID != "alice" {
		t.Errorf("expected only alice, got %+v", page.Users)
	}
}

func TestDeactivateUser(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "40")

	if err := h.admin.DeactivateUser(h.ctx, adminActor, "alice"); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}

	user, err := h.users.GetUser(h.ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Active() || user.Email != "" {
		t.Errorf("expected deactivated and scrubbed user, got %+v", user)
	}
	assertDecimal(t, "balance kept", user.Balance, "40")
	if len(h.entries("alice")) != 1 {
		t.Error("ledger must survive deactivation")
	}

	if err := h.admin.DeactivateUser(h.ctx, adminActor, "alice"); !errors.Is(err, ErrUserDeactivated) {
		t.Errorf("expected ErrUserDeactivated, got %v", err)
	}
	if err := h.admin.DeactivateUser(h.ctx, adminActor, adminActor.UserID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected self-deactivation to be refused, got %v", err)
	}
}
