package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// CronConfig contains maintenance schedules in robfig/cron syntax
type CronConfig struct {
	SweepSchedule   string // dedup cache sweep
	BacklogSchedule string // pending queue report, empty disables
}

// DefaultCronConfig returns default schedules
func DefaultCronConfig() CronConfig {
	return CronConfig{
		SweepSchedule:   "@every 1m",
		BacklogSchedule: "@every 15m",
	}
}

// CronRunner runs periodic maintenance
type CronRunner struct {
	cron        *cron.Cron
	cache       repo.DedupCache
	messageRepo repo.MessageRepo
	cfg         CronConfig
	log         *zap.Logger
}

// NewCronRunner creates a new cron runner
func NewCronRunner(cache repo.DedupCache, messageRepo repo.MessageRepo, cfg CronConfig, log *zap.Logger) (*CronRunner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &CronRunner{
		cron:        cron.New(),
		cache:       cache,
		messageRepo: messageRepo,
		cfg:         cfg,
		log:         log.Named("cron"),
	}

	if cfg.SweepSchedule != "" {
		if _, err := r.cron.AddFunc(cfg.SweepSchedule, func() { r.SweepCache() }); err != nil {
			return nil, fmt.Errorf("failed to schedule cache sweep: %w", err)
		}
	}
	if cfg.BacklogSchedule != "" && messageRepo != nil {
		if _, err := r.cron.AddFunc(cfg.BacklogSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			r.ReportBacklog(ctx)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule backlog report: %w", err)
		}
	}
	return r, nil
}

// Start starts the cron runner
func (r *CronRunner) Start() {
	r.cron.Start()
	r.log.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
}

// Stop stops the cron runner and waits for running jobs
func (r *CronRunner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("cron stopped")
}

// SweepCache drops expired dedup entries
func (r *CronRunner) SweepCache() int {
	n := r.cache.Sweep()
	if n > 0 {
		r.log.Debug("dedup cache swept", zap.Int("removed", n))
	}
	return n
}

// ReportBacklog logs how many messages wait for review
func (r *CronRunner) ReportBacklog(ctx context.Context) int {
	const limit = 500
	items, err := r.messageRepo.ListByStatus(ctx, "", domain.StatusPending, limit)
	if err != nil {
		r.log.Warn("failed to count pending messages", zap.Error(err))
		return -1
	}
	if len(items) > 0 {
		oldest := items[len(items)-1].Message.CreatedAt
		r.log.Info("pending review backlog",
			zap.Int("count", len(items)),
			zap.Bool("truncated", len(items) == limit),
			zap.Duration("oldest_age", time.Since(oldest).Round(time.Second)))
	}
	return len(items)
}
