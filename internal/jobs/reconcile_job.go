package jobs

import (
	"context"
	"fmt"
	"time"

	"betting-pool/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Reconciler runs one ledger audit pass
type Reconciler interface {
	Run(ctx context.Context) (*services.ReconciliationReport, error)
}

// ReconcileJob periodically audits balances and bet totals
type ReconcileJob struct {
	reconciler Reconciler
	interval   time.Duration
	timeout    time.Duration
	log        *zap.Logger
	scheduler  gocron.Scheduler
}

// NewReconcileJob creates the job. A zero interval disables it.
func NewReconcileJob(reconciler Reconciler, interval time.Duration, log *zap.Logger) *ReconcileJob {
	timeout := interval
	if timeout <= 0 || timeout > 5*time.Minute {
		timeout = 5 * time.Minute
	}
	return &ReconcileJob{
		reconciler: reconciler,
		interval:   interval,
		timeout:    timeout,
		log:        log.Named("reconcile_job"),
	}
}

// Start schedules the audit, running the first pass immediately
func (j *ReconcileJob) Start() error {
	if j.interval <= 0 {
		j.log.Info("reconciliation job disabled")
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(j.run),
		gocron.WithName("reconcile"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	scheduler.Start()
	j.scheduler = scheduler
	j.log.Info("reconciliation job started", zap.Duration("interval", j.interval))
	return nil
}

// Stop waits for a running pass to finish and stops the scheduler
func (j *ReconcileJob) Stop() error {
	if j.scheduler == nil {
		return nil
	}
	j.log.Info("stopping reconciliation job")
	return j.scheduler.Shutdown()
}

func (j *ReconcileJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.Run(ctx)
	if err != nil {
		j.log.Error("reconciliation pass failed", zap.Error(err))
		return
	}
	if !report.OK() {
		j.log.Warn("reconciliation found discrepancies", zap.Int("count", len(report.Discrepancies)))
	}
}
