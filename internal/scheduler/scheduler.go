package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// Runner executes one ingestion run over a window.
type Runner interface {
	Run(ctx context.Context, w model.Window) pipeline.Outcome
}

// Scheduler triggers the daily incremental run on a cron schedule.
type Scheduler struct {
	Cron         *cron.Cron
	Runner       Runner
	LookbackDays int
	Ctx          context.Context
	Now          func() time.Time

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds field.
func NewScheduler(ctx context.Context, r Runner, lookbackDays int) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Runner:       r,
		LookbackDays: lookbackDays,
		Ctx:          ctx,
		Now:          time.Now,
	}
}

// Register schedules the daily incremental run.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Infof("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to return,
// including one started by RunNow.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.mu.Lock()
	s.mu.Unlock()
	logger.Infof("scheduler stopped")
}

// RunNow executes the daily task immediately. It reports false when a run is
// already in progress.
func (s *Scheduler) RunNow() (pipeline.Outcome, bool) {
	return s.runIncremental()
}

func (s *Scheduler) dailyTask() {
	s.runIncremental()
}

func (s *Scheduler) runIncremental() (pipeline.Outcome, bool) {
	if !s.mu.TryLock() {
		logger.Warnf("previous run still in progress, skipping")
		return pipeline.Outcome{}, false
	}
	defer s.mu.Unlock()

	w := model.Incremental(model.Today(s.Now()), s.LookbackDays)
	logger.Infof("running daily task: %s", w)
	return s.Runner.Run(s.Ctx, w), true
}
