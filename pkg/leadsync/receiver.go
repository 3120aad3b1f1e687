package leadsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/crm"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// SyncStatusField is the CRM payload key carrying the record's sync status
const SyncStatusField = "Lead_Sync_Status"

const noneValue = "-None-"

// ReceiverStore is the storage the webhook receiver needs
type ReceiverStore interface {
	HasSyncedLead(ctx context.Context, integrationID string) (bool, error)
	InsertLog(ctx context.Context, l *models.IntegrationLog) error
}

// LogProcessor processes a queued entry
type LogProcessor interface {
	ProcessLog(ctx context.Context, logID string) (Outcome, error)
}

// Receiver accepts CRM webhook payloads and queues them
type Receiver struct {
	store     ReceiverStore
	processor LogProcessor
	metrics   *metrics.Metrics
	log       logger.Logger
}

// NewReceiver creates a receiver. When processor is non-nil every queued
// entry is processed right away; the retry sweep picks up whatever that
// leaves Pending.
func NewReceiver(store ReceiverStore, processor LogProcessor, m *metrics.Metrics, log logger.Logger) *Receiver {
	if log == nil {
		log = logger.Nop()
	}
	return &Receiver{store: store, processor: processor, metrics: m, log: log}
}

// Receive handles one webhook payload. It never returns an error: failures
// are reported through the response status.
func (r *Receiver) Receive(ctx context.Context, payload map[string]any) (resp models.WebhookResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic while receiving webhook", "panic", rec)
			resp = models.WebhookResponse{Status: models.WebhookStatusError, Message: "Something went wrong"}
		}
		r.metrics.RecordWebhook(resp.Status)
	}()

	if payload == nil {
		payload = map[string]any{}
	}
	integrationID := fieldmap.Clean(payload["id"])

	syncStatus := fieldmap.Clean(payload[SyncStatusField])
	if syncStatus == "" {
		syncStatus = noneValue
	}
	if crm.IsTerminalStatus(syncStatus) {
		r.log.Info("webhook ignored, lead already processed in crm", "integration_id", integrationID, "sync_status", syncStatus)
		return models.WebhookResponse{
			Status:  models.WebhookStatusSkipped,
			Message: fmt.Sprintf("Webhook ignored. Lead already processed in CRM (%s).", syncStatus),
		}
	}

	synced, err := r.store.HasSyncedLead(ctx, integrationID)
	if err != nil {
		r.log.Error("failed to check for synced lead", "integration_id", integrationID, "error", err)
		return models.WebhookResponse{Status: models.WebhookStatusError, Message: "Something went wrong"}
	}
	if synced {
		r.log.Info("webhook ignored, lead already synced", "integration_id", integrationID)
		return models.WebhookResponse{
			Status:  models.WebhookStatusSkipped,
			Message: fmt.Sprintf("Webhook ignored. Lead already synced (CRM ID %s).", integrationID),
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("failed to encode webhook payload", "integration_id", integrationID, "error", err)
		return models.WebhookResponse{Status: models.WebhookStatusError, Message: "Something went wrong"}
	}
	entry := &models.IntegrationLog{
		Status:        models.LogStatusPending,
		Data:          string(data),
		IntegrationID: integrationID,
	}
	if err := r.store.InsertLog(ctx, entry); err != nil {
		r.log.Error("failed to queue webhook payload", "integration_id", integrationID, "error", err)
		return models.WebhookResponse{Status: models.WebhookStatusError, Message: "Something went wrong"}
	}
	r.log.Info("webhook queued", "log_id", entry.ID, "integration_id", integrationID)

	if r.processor != nil {
		if outcome, err := r.processor.ProcessLog(ctx, entry.ID); err != nil {
			r.log.Warn("inline processing failed, left for the retry sweep", "log_id", entry.ID, "error", err)
		} else {
			r.log.Debug("inline processing finished", "log_id", entry.ID, "outcome", string(outcome))
		}
	}

	return models.WebhookResponse{Status: models.WebhookStatusSuccess, Message: "Lead logged and queued"}
}
