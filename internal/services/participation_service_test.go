package services

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"betting-pool/internal/events"
	"betting-pool/internal/models"
)

func TestParticipateDebitsAndGrowsPool(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")

	p := h.participate(bet.ID, "alice", 1, "40")
	if p.ID == 0 || p.OptionID != 1 {
		t.Errorf("unexpected participation %+v", p)
	}

	assertDecimal(t, "balance", h.balance("alice"), "60")
	assertDecimal(t, "total pool", h.bet(bet.ID).TotalPool, "40")

	entries := h.entries("alice")
	last := entries[len(entries)-1]
	if last.Type != models.LedgerEntryDebit || !last.Amount.Equal(dec("-40")) {
		t.Errorf("expected -40 debit, got %s %s", last.Type, last.Amount)
	}
	if !strings.Contains(last.Description, bet.Title) {
		t.Errorf("expected description to mention the bet, got %q", last.Description)
	}

	if got := len(h.publisher.ofType(events.TypeParticipationPlaced)); got != 1 {
		t.Errorf("expected 1 participation.placed event, got %d", got)
	}
}

func TestParticipateInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "50")
	bet := h.createBet("10", "Heads", "Tails")

	_, err := h.participation.Participate(h.ctx, bet.ID, "alice", 1, dec("60"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if KindOf(err) != KindInsufficientFunds {
		t.Errorf("expected insufficient funds kind, got %v", KindOf(err))
	}

	assertDecimal(t, "balance", h.balance("alice"), "50")
	assertDecimal(t, "total pool", h.bet(bet.ID).TotalPool, "0")
	if n := h.countParticipations(bet.ID); n != 0 {
		t.Errorf("expected no participation rows, got %d", n)
	}
}

func TestParticipateAmountValidation(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")

	for _, amount := range []string{"15", "0", "-10", "5", "10.5"} {
		_, err := h.participation.Participate(h.ctx, bet.ID, "alice", 1, dec(amount))
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	h.participate(bet.ID, "alice", 1, "10")
	assertDecimal(t, "balance", h.balance("alice"), "90")
}

func TestParticipateRejections(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")
	h.participate(bet.ID, "alice", 1, "10")

	locked := h.createBet("10", "Up", "Down")
	status := models.BetStatusLocked
	if _, err := h.bets.UpdateBet(h.ctx, adminActor, locked.ID, models.UpdateBetRequest{Status: &status}); err != nil {
		t.Fatalf("failed to lock bet: %v", err)
	}

	cases := []struct {
		name     string
		betID    uint
		optionID int
		want     error
	}{
		{"unknown bet", 9999, 1, ErrBetNotFound},
		{"locked bet", locked.ID, 1, ErrBetNotActive},
		{"unknown option", bet.ID, 3, ErrInvalidOption},
		{"second stake", bet.ID, 2, ErrDuplicateParticipation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.participation.Participate(h.ctx, tc.betID, "alice", tc.optionID, dec("10"))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	_, err := h.participation.Participate(h.ctx, locked.ID, "alice", 1, dec("10"))
	if err == nil || err.Error() != "cannot participate: bet is locked" {
		t.Errorf("expected state error naming status and action, got %v", err)
	}

	assertDecimal(t, "balance", h.balance("alice"), "90")
	if n := h.countParticipations(bet.ID); n != 1 {
		t.Errorf("expected exactly one participation, got %d", n)
	}
}

func TestParticipateRejectsDeactivatedUser(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")

	if err := h.admin.DeactivateUser(h.ctx, adminActor, "alice"); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}

	_, err := h.participation.Participate(h.ctx, bet.ID, "alice", 1, dec("10"))
	if !errors.Is(err, ErrUserDeactivated) {
		t.Errorf("expected ErrUserDeactivated, got %v", err)
	}
}

func TestConcurrentParticipationKeepsOneRow(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "1000")
	bet := h.createBet("10", "Heads", "Tails")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.participation.Participate(h.ctx, bet.ID, "alice", 1+i%2, dec("10"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrDuplicateParticipation):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one success, got %d", succeeded)
	}
	if n := h.countParticipations(bet.ID); n != 1 {
		t.Errorf("expected one participation row, got %d", n)
	}
	assertDecimal(t, "balance", h.balance("alice"), "990")
	assertDecimal(t, "total pool", h.bet(bet.ID).TotalPool, "10")
}

func TestEditParticipationMovesStake(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")
	h.participate(bet.ID, "alice", 1, "20")

	p, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 2, dec("50"))
	if err != nil {
		t.Fatalf("EditParticipation failed: %v", err)
	}
	if p.OptionID != 2 || !p.Amount.Equal(dec("50")) {
		t.Errorf("expected option 2 / 50, got %d / %s", p.OptionID, p.Amount)
	}

	assertDecimal(t, "balance", h.balance("alice"), "50")
	assertDecimal(t, "total pool", h.bet(bet.ID).TotalPool, "50")

	entries := h.entries("alice")
	last := entries[len(entries)-1]
	if last.Type != models.LedgerEntryDebit || !last.Amount.Equal(dec("-30")) {
		t.Errorf("expected -30 debit for the increase, got %s %s", last.Type, last.Amount)
	}

	stored, err := h.participation.GetParticipation(h.ctx, bet.ID, "alice")
	if err != nil {
		t.Fatalf("GetParticipation failed: %v", err)
	}
	if stored.OptionID != 2 || !stored.Amount.Equal(dec("50")) {
		t.Errorf("stored participation not updated: %+v", stored)
	}

	if got := len(h.publisher.ofType(events.TypeParticipationAmended)); got != 1 {
		t.Errorf("expected 1 participation.amended event, got %d", got)
	}
}

func TestEditParticipationRoundTripRestoresState(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "100")
	bet := h.createBet("10", "Heads", "Tails")
	h.participate(bet.ID, "alice", 1, "30")

	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 1, dec("70")); err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 1, dec("30")); err != nil {
		t.Fatalf("decrease failed: %v", err)
	}

	assertDecimal(t, "balance", h.balance("alice"), "70")
	assertDecimal(t, "total pool", h.bet(bet.ID).TotalPool, "30")

	entries := h.entries("alice")
	last := entries[len(entries)-1]
	if last.Type != models.LedgerEntryCredit || !last.Amount.Equal(dec("40")) {
		t.Errorf("expected +40 credit for the decrease, got %s %s", last.Type, last.Amount)
	}

	// same amount, new option: no money moves
	before := len(entries)
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 2, dec("30")); err != nil {
		t.Fatalf("option switch failed: %v", err)
	}
	if after := len(h.entries("alice")); after != before {
		t.Errorf("expected no ledger entry for a zero delta, got %d new", after-before)
	}
}

func TestEditParticipationRejections(t *testing.T) {
	h := newHarness(t)
	h.createUser("alice", "30")
	h.createUser("bob", "100")
	bet := h.createBet("10", "Heads", "Tails")
	h.participate(bet.ID, "alice", 1, "20")

	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "bob", 1, dec("10")); !errors.Is(err, ErrParticipationNotFound) {
		t.Errorf("expected ErrParticipationNotFound, got %v", err)
	}
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 1, dec("40")); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 5, dec("10")); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 1, dec("25")); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	if _, err := h.settlement.Settle(h.ctx, adminActor, bet.ID, 2); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if _, err := h.participation.EditParticipation(h.ctx, bet.ID, "alice", 1, dec("10")); !errors.Is(err, ErrBetAlreadyCompleted) {
		t.Errorf("expected completed bet to refuse edits, got %v", err)
	}

	assertDecimal(t, "balance", h.balance("alice"), "10")
}
