package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"betting-pool/internal/auth"
	"betting-pool/internal/database"
	"betting-pool/internal/repository"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	router *gin.Engine
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.InitJWT("test-secret")

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

	deps := services.Deps{Repo: repository.NewRepository(db)}
	svc := Services{
		Users:          services.NewUserService(deps, decimal.NewFromInt(100)),
		Bets:           services.NewBetService(deps, decimal.NewFromInt(10)),
		Pool:           services.NewPoolService(deps),
		Participation:  services.NewParticipationService(deps, decimal.NewFromInt(10)),
		Settlement:     services.NewSettlementService(deps),
		Ledger:         services.NewLedgerService(deps),
		Admin:          services.NewAdminService(deps),
		Reconciliation: services.NewReconciliationService(deps),
	}

	return &testServer{router: NewRouter(svc, "", http.NotFoundHandler(), zap.NewNop())}
}

func token(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, userID, userID+"@example.com", isAdmin, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid JSON response %q", method, path, w.Body.String())
		}
	}
	return w, out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func expectDecimal(t *testing.T, name string, got any, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("%s: expected a decimal string, got %v", name, got)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", name, want, s)
	}
}

func TestHealth(t *testing.T) {
	s := setupRouter(t)

	w, body := s.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, w, http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestBetFlowOverHTTP(t *testing.T) {
	s := setupRouter(t)
	admin := token(t, "admin-1", true)
	alice := token(t, "alice", false)
	bob := token(t, "bob", false)

	w, body := s.do(t, http.MethodPost, "/api/admin/bets", admin, map[string]any{
		"title":   "Coin toss",
		"options": []string{"Heads", "Tails"},
	})
	expectStatus(t, w, http.StatusCreated)
	betID := int(body["data"].(map[string]any)["id"].(float64))
	betPath := fmt.Sprintf("/api/bets/%d", betID)

	w, _ = s.do(t, http.MethodPost, betPath+"/participation", alice, map[string]any{"option_id": 1, "amount": 50})
	expectStatus(t, w, http.StatusCreated)
	w, _ = s.do(t, http.MethodPost, betPath+"/participation", bob, map[string]any{"option_id": 2, "amount": 50})
	expectStatus(t, w, http.StatusCreated)

	// second stake on the same bet
	w, body = s.do(t, http.MethodPost, betPath+"/participation", alice, map[string]any{"option_id": 2, "amount": 10})
	expectStatus(t, w, http.StatusConflict)
	if body["code"] != "state_conflict" {
		t.Errorf("expected state_conflict code, got %v", body["code"])
	}

	w, body = s.do(t, http.MethodGet, betPath+"/pool-stats", "", nil)
	expectStatus(t, w, http.StatusOK)
	stats := body["data"].(map[string]any)
	expectDecimal(t, "total_pool", stats["total_pool"], "100")

	w, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/bets/%d/complete", betID), admin, map[string]any{"winning_option_id": 1})
	expectStatus(t, w, http.StatusOK)

	w, body = s.do(t, http.MethodGet, "/api/user/profile", alice, nil)
	expectStatus(t, w, http.StatusOK)
	// 100 initial - 50 stake + 90 prize (10% commission)
	expectDecimal(t, "alice balance", body["user"].(map[string]any)["balance"], "140")

	w, body = s.do(t, http.MethodGet, "/api/user/payment-history", bob, nil)
	expectStatus(t, w, http.StatusOK)
	if got := body["total"].(float64); got != 3 {
		t.Errorf("expected 3 ledger entries for bob, got %v", got)
	}

	w, body = s.do(t, http.MethodPost, "/api/admin/reconcile", admin, nil)
	expectStatus(t, w, http.StatusOK)
	if body["ok"] != true {
		t.Errorf("expected a clean reconciliation, got %v", body["data"])
	}

	// completed bets no longer accept edits
	w, _ = s.do(t, http.MethodPut, betPath+"/participation", bob, map[string]any{"option_id": 1, "amount": 50})
	expectStatus(t, w, http.StatusConflict)
}

func TestErrorStatuses(t *testing.T) {
	s := setupRouter(t)
	admin := token(t, "admin-1", true)
	alice := token(t, "alice", false)

	w, _ := s.do(t, http.MethodGet, "/api/user/profile", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w, _ = s.do(t, http.MethodPost, "/api/admin/bets", alice, map[string]any{
		"title":   "Coin toss",
		"options": []string{"Heads", "Tails"},
	})
	expectStatus(t, w, http.StatusForbidden)

	w, _ = s.do(t, http.MethodGet, "/api/bets/999", "", nil)
	expectStatus(t, w, http.StatusNotFound)

	w, _ = s.do(t, http.MethodGet, "/api/bets/abc", "", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w, body := s.do(t, http.MethodPost, "/api/admin/bets", admin, map[string]any{
		"title":   "One sided",
		"options": []string{"Only"},
	})
	expectStatus(t, w, http.StatusBadRequest)
	if body["code"] != "validation" {
		t.Errorf("expected validation code, got %v", body["code"])
	}

	w, body = s.do(t, http.MethodPost, "/api/admin/bets", admin, map[string]any{
		"title":   "Coin toss",
		"options": []string{"Heads", "Tails"},
	})
	expectStatus(t, w, http.StatusCreated)
	betID := int(body["data"].(map[string]any)["id"].(float64))

	// alice holds 100
	w, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/bets/%d/participation", betID), alice,
		map[string]any{"option_id": 1, "amount": 500})
	expectStatus(t, w, http.StatusUnprocessableEntity)
}
