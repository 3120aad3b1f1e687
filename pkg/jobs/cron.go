package jobs

import (
	"context"
	"time"

	"github.com/jordanlanch/leadsync/pkg/cache"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the retry sweep every two minutes
const DefaultSweepSchedule = "@every 2m"

const sweepLockKey = "leadsync:lock:sweep"

// Sweeper retries pending integration log entries
type Sweeper interface {
	RetryPending(ctx context.Context) (models.SweepResult, error)
}

// Locker keeps two processes from sweeping at the same time
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, error)
	Release(ctx context.Context, lock *cache.Lock) error
}

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	sweeper  Sweeper
	locker   Locker
	schedule string
	timeout  time.Duration
	logger   logger.Logger
}

// NewCronManager creates a new cron manager. locker may be nil for a
// single-instance deployment.
func NewCronManager(sweeper Sweeper, locker Locker, schedule string, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Nop()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	return &CronManager{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper:  sweeper,
		locker:   locker,
		schedule: schedule,
		timeout:  10 * time.Minute,
		logger:   log,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	if _, err := cm.cron.AddFunc(cm.schedule, cm.RunSweep); err != nil {
		return err
	}
	cm.logger.Info("cron jobs configured", "retry_sweep", cm.schedule)
	return nil
}

// RunSweep runs one retry sweep, unless another process holds the sweep lock
func (cm *CronManager) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), cm.timeout)
	defer cancel()

	if cm.locker != nil {
		lock, err := cm.locker.Acquire(ctx, sweepLockKey, cm.timeout)
		if err != nil {
			cm.logger.Warn("sweep lock unavailable, sweeping without it", "error", err)
		} else if lock == nil {
			cm.logger.Debug("retry sweep already running elsewhere")
			return
		} else {
			defer func() {
				if err := cm.locker.Release(context.Background(), lock); err != nil {
					cm.logger.Warn("failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	if _, err := cm.sweeper.RetryPending(ctx); err != nil {
		cm.logger.Error("retry sweep failed", "error", err)
	}
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop stops the cron scheduler and waits for a running sweep to finish
func (cm *CronManager) Stop() context.Context {
	cm.logger.Info("stopping cron scheduler")
	return cm.cron.Stop()
}
