package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"betting-pool/internal/database"
	"betting-pool/internal/events"
	"betting-pool/internal/models"
	"betting-pool/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var adminActor = Actor{UserID: "admin-1", IsAdmin: true}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named in-memory database per test; one connection so concurrent
	// transactions queue up the way they would behind a row lock
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// memoryCache is an in-process PoolStatsCache.
type memoryCache struct {
	mu          sync.Mutex
	items       map[uint][]byte
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[uint][]byte)}
}

func (c *memoryCache) Get(_ context.Context, betID uint, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[betID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memoryCache) Set(_ context.Context, betID uint, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[betID] = b
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, betID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, betID)
	c.invalidated++
	return nil
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	repo      *repository.Repository
	publisher *recordingPublisher
	cache     *memoryCache

	bets          *BetService
	participation *ParticipationService
	settlement    *SettlementService
	ledger        *LedgerService
	pool          *PoolService
	users         *UserService
	admin         *AdminService
	recon         *ReconciliationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := setupTestDB(t)
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		repo:      repository.NewRepository(db),
		publisher: &recordingPublisher{},
		cache:     newMemoryCache(),
	}

	deps := Deps{Repo: h.repo, Cache: h.cache, Publisher: h.publisher}
	h.bets = NewBetService(deps, dec("1"))
	h.participation = NewParticipationService(deps, dec("10"))
	h.settlement = NewSettlementService(deps)
	h.ledger = NewLedgerService(deps)
	h.pool = NewPoolService(deps)
	h.users = NewUserService(deps, decimal.Zero)
	h.admin = NewAdminService(deps)
	h.recon = NewReconciliationService(deps)
	return h
}

// createUser provisions a user and funds it through the ledger.
func (h *harness) createUser(id string, balance string) *models.User {
	h.t.Helper()

	user, err := h.users.EnsureUser(h.ctx, Identity{UserID: id, Name: id, Email: id + "@example.com"})
	if err != nil {
		h.t.Fatalf("failed to create user %s: %v", id, err)
	}
	if amount := dec(balance); amount.IsPositive() {
		if _, err := h.ledger.AdjustBalance(h.ctx, adminActor, id, AdjustBalanceInput{
			Type:        models.LedgerEntryCredit,
			Amount:      amount,
			Description: "seed",
		}); err != nil {
			h.t.Fatalf("failed to fund user %s: %v", id, err)
		}
	}
	return user
}

func (h *harness) createBet(commission string, options ...string) *models.Bet {
	h.t.Helper()

	rate := dec(commission)
	bet, err := h.bets.CreateBet(h.ctx, adminActor, models.CreateBetRequest{
		Title:          "Coin toss",
		Options:        options,
		CommissionRate: &rate,
	})
	if err != nil {
		h.t.Fatalf("failed to create bet: %v", err)
	}
	return bet
}

func (h *harness) participate(betID uint, userID string, optionID int, amount string) *models.Participation {
	h.t.Helper()

	p, err := h.participation.Participate(h.ctx, betID, userID, optionID, dec(amount))
	if err != nil {
		h.t.Fatalf("participate(%s, option %d, %s) failed: %v", userID, optionID, amount, err)
	}
	return p
}

func (h *harness) balance(userID string) decimal.Decimal {
	h.t.Helper()

	user, err := h.repo.GetUser(h.ctx, userID)
	if err != nil {
		h.t.Fatalf("failed to load user %s: %v", userID, err)
	}
	return user.Balance
}

func (h *harness) bet(betID uint) *models.Bet {
	h.t.Helper()

	bet, err := h.repo.GetBet(h.ctx, betID)
	if err != nil {
		h.t.Fatalf("failed to load bet %d: %v", betID, err)
	}
	return bet
}

func (h *harness) entries(userID string) []*models.LedgerEntry {
	h.t.Helper()

	entries, err := h.repo.ListUserLedger(h.ctx, userID)
	if err != nil {
		h.t.Fatalf("failed to load ledger of %s: %v", userID, err)
	}
	return entries
}

func (h *harness) countParticipations(betID uint) int64 {
	h.t.Helper()

	n, err := h.repo.CountParticipations(h.ctx, betID)
	if err != nil {
		h.t.Fatalf("failed to count participations: %v", err)
	}
	return n
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s: expected %s, got %s", what, want, got)
	}
}

// afterFirstQuery runs fn once, right after the first query against table
// has read its rows and before the caller sees them. Only queries outside a
// transaction may trigger it; the test DB has a single connection.
func (h *harness) afterFirstQuery(table string, fn func()) {
	h.t.Helper()

	armed := true
	err := h.db.Callback().Query().After("gorm:query").Register("test:after_first_"+table, func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != table {
			return
		}
		armed = false
		fn()
	})
	if err != nil {
		h.t.Fatalf("failed to register callback: %v", err)
	}
}
