package leadsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jordanlanch/leadsync/pkg/cache"
	"github.com/jordanlanch/leadsync/pkg/crm"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// Outcome is the result of processing one log entry
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeDeferred Outcome = "deferred"
	OutcomeSkipped  Outcome = "skipped"
)

// LogStore is the integration log access the processor needs
type LogStore interface {
	GetLog(ctx context.Context, id string) (*models.IntegrationLog, error)
	ListLogIDsByStatus(ctx context.Context, status string) ([]string, error)
	UpdateLogResult(ctx context.Context, id, status, message, lead string) error
	HasSyncedLead(ctx context.Context, integrationID string) (bool, error)
}

// Locker serialises work on one external id across processes
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, error)
	Release(ctx context.Context, lock *cache.Lock) error
}

// Processor drives integration log entries through the upsert engine
type Processor struct {
	logs    LogStore
	engine  *Engine
	status  StatusUpdater
	locker  Locker
	lockTTL time.Duration
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewProcessor creates a processor. locker may be nil, in which case no
// cross-process lock is taken.
func NewProcessor(logs LogStore, engine *Engine, status StatusUpdater, locker Locker, lockTTL time.Duration, m *metrics.Metrics, log logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Processor{
		logs:    logs,
		engine:  engine,
		status:  status,
		locker:  locker,
		lockTTL: lockTTL,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func lockKey(integrationID string) string {
	return "leadsync:lock:" + integrationID
}

// ProcessLog processes one entry and records the result on it. Success
// entries are left alone; Pending and Failed entries are (re)processed.
// The returned error covers storage failures only: a payload that cannot
// be synced is recorded as Failed and reported through the outcome.
func (p *Processor) ProcessLog(ctx context.Context, logID string) (Outcome, error) {
	entry, err := p.logs.GetLog(ctx, logID)
	if err != nil {
		return "", err
	}
	if entry.Status == models.LogStatusSuccess {
		return OutcomeSkipped, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(entry.Data), &payload); err != nil || payload == nil {
		msg := "invalid payload: not a JSON object"
		if err != nil {
			msg = "invalid payload: " + err.Error()
		}
		return p.fail(ctx, entry, msg)
	}

	integrationID := fieldmap.Clean(payload["id"])
	if p.locker != nil && integrationID != "" {
		lock, err := p.locker.Acquire(ctx, lockKey(integrationID), p.lockTTL)
		if err != nil {
			p.log.Warn("sync lock unavailable, processing without it", "integration_id", integrationID, "error", err)
		} else if lock == nil {
			p.log.Info("integration id locked elsewhere, deferring", "log_id", entry.ID, "integration_id", integrationID)
			p.metrics.RecordLogOutcome(string(OutcomeDeferred))
			return OutcomeDeferred, nil
		} else {
			defer func() {
				if err := p.locker.Release(context.WithoutCancel(ctx), lock); err != nil {
					p.log.Warn("failed to release sync lock", "key", lock.Key, "error", err)
				}
			}()
		}
	}

	synced, err := p.logs.HasSyncedLead(ctx, integrationID)
	if err != nil {
		return p.fail(ctx, entry, err.Error())
	}
	if synced {
		return p.succeed(ctx, entry, fmt.Sprintf("Lead already exists (CRM ID %s)", integrationID), "")
	}

	result, err := p.engine.Upsert(ctx, payload)
	if err != nil {
		return p.fail(ctx, entry, err.Error())
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	outcome, err := p.succeed(ctx, entry, fmt.Sprintf("Lead %s: %s", verb, result.Lead.ID), result.Lead.ID)
	if err != nil {
		return outcome, err
	}

	if integrationID != "" && p.status != nil {
		err := p.status.UpdateLeadStatus(ctx, integrationID, crm.StatusLeadCreated)
		p.metrics.RecordCRMCallback(err == nil)
		if err != nil {
			p.log.Warn("failed to report lead creation to crm", "integration_id", integrationID, "error", err)
		}
	}
	return outcome, nil
}

func (p *Processor) succeed(ctx context.Context, entry *models.IntegrationLog, msg, lead string) (Outcome, error) {
	if err := p.logs.UpdateLogResult(ctx, entry.ID, models.LogStatusSuccess, msg, lead); err != nil {
		return "", err
	}
	p.log.Info("integration log processed", "log_id", entry.ID, "message", msg)
	p.metrics.RecordLogOutcome(string(OutcomeSuccess))
	return OutcomeSuccess, nil
}

func (p *Processor) fail(ctx context.Context, entry *models.IntegrationLog, msg string) (Outcome, error) {
	if err := p.logs.UpdateLogResult(ctx, entry.ID, models.LogStatusFailed, msg, ""); err != nil {
		return "", err
	}
	p.log.Error("integration log failed", "log_id", entry.ID, "error", msg)
	p.metrics.RecordLogOutcome(string(OutcomeFailed))
	return OutcomeFailed, nil
}

// RetryPending runs one sweep over every Pending entry, oldest first. A
// failure, or a panic, on one entry never stops the sweep.
func (p *Processor) RetryPending(ctx context.Context) (models.SweepResult, error) {
	start := p.now()
	ids, err := p.logs.ListLogIDsByStatus(ctx, models.LogStatusPending)
	if err != nil {
		return models.SweepResult{}, err
	}

	result := models.SweepResult{Total: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			p.log.Warn("retry sweep interrupted", "remaining", result.Total-result.Succeeded-result.Failed-result.Deferred)
			return result, err
		}
		switch p.processSafely(ctx, id) {
		case OutcomeSuccess, OutcomeSkipped:
			result.Succeeded++
		case OutcomeDeferred:
			result.Deferred++
		default:
			result.Failed++
		}
	}

	p.metrics.RecordSweep(len(ids), p.now().Sub(start))
	if result.Total > 0 {
		p.log.Info("retry sweep finished",
			"total", result.Total, "succeeded", result.Succeeded,
			"failed", result.Failed, "deferred", result.Deferred)
	}
	return result, nil
}

func (p *Processor) processSafely(ctx context.Context, id string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic while processing integration log", "log_id", id, "panic", r)
			outcome = p.markFailed(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	outcome, err := p.ProcessLog(ctx, id)
	if err != nil {
		p.log.Error("failed to process integration log", "log_id", id, "error", err)
		return p.markFailed(ctx, id, err.Error())
	}
	return outcome
}

func (p *Processor) markFailed(ctx context.Context, id, msg string) Outcome {
	if err := p.logs.UpdateLogResult(ctx, id, models.LogStatusFailed, msg, ""); err != nil {
		p.log.Error("failed to mark integration log failed", "log_id", id, "error", err)
	}
	p.metrics.RecordLogOutcome(string(OutcomeFailed))
	return OutcomeFailed
}

// MarkFailed makes an entry terminal so sweeps stop picking it up
func (p *Processor) MarkFailed(ctx context.Context, logID, message string) (*models.IntegrationLog, error) {
	entry, err := p.logs.GetLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.LogStatusSuccess {
		return nil, domain.NewConflictError("integration log " + logID + " already succeeded")
	}
	if err := p.logs.UpdateLogResult(ctx, logID, models.LogStatusFailed, message, ""); err != nil {
		return nil, err
	}
	return p.logs.GetLog(ctx, logID)
}

// Retry reprocesses one Pending or Failed entry and returns it as stored
// afterwards
func (p *Processor) Retry(ctx context.Context, logID string) (*models.IntegrationLog, Outcome, error) {
	outcome, err := p.ProcessLog(ctx, logID)
	if err != nil {
		return nil, "", err
	}
	entry, err := p.logs.GetLog(ctx, logID)
	if err != nil {
		return nil, "", err
	}
	return entry, outcome, nil
}
