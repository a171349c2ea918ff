package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"betting-pool/internal/services"

	"go.uber.org/zap"
)

type countingReconciler struct {
	runs atomic.Int32
	err  error
}

func (r *countingReconciler) Run(context.Context) (*services.ReconciliationReport, error) {
	r.runs.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &services.ReconciliationReport{}, nil
}

func waitForRuns(t *testing.T, r *countingReconciler, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.runs.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected at least %d runs, got %d", want, r.runs.Load())
}

func TestReconcileJobRunsOnSchedule(t *testing.T) {
	r := &countingReconciler{}
	job := NewReconcileJob(r, 20*time.Millisecond, zap.NewNop())

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForRuns(t, r, 2)

	if err := job.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestReconcileJobSurvivesFailures(t *testing.T) {
	r := &countingReconciler{err: errors.New("database unavailable")}
	job := NewReconcileJob(r, 20*time.Millisecond, zap.NewNop())

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer job.Stop()

	waitForRuns(t, r, 2)
}

func TestReconcileJobDisabled(t *testing.T) {
	r := &countingReconciler{}
	job := NewReconcileJob(r, 0, zap.NewNop())

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := job.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := r.runs.Load(); got != 0 {
		t.Errorf("expected no runs, got %d", got)
	}
}
