// Package leadsync turns inbound CRM lead webhooks into local leads: it
// queues payloads in the integration log, upserts leads from them and
// reports the outcome back to the CRM.
package leadsync

import (
	"context"
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/crm"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// LeadStore is the lead lookup and flag access the upsert engine needs
type LeadStore interface {
	FindLeadByField(ctx context.Context, column, value string) (*models.Lead, error)
	GetFieldMappings(ctx context.Context, name string) ([]models.FieldMapping, error)
	UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error
}

// LeadSaver persists a lead through the save hooks
type LeadSaver interface {
	Save(ctx context.Context, lead *models.Lead) error
}

// StatusUpdater writes a sync status back onto the CRM record
type StatusUpdater interface {
	UpdateLeadStatus(ctx context.Context, leadID, status string) error
}

// UpsertResult describes what Upsert did
type UpsertResult struct {
	Lead    *models.Lead
	Created bool
	Synced  bool
}

// Engine creates or updates a lead from one CRM payload
type Engine struct {
	store       LeadStore
	leads       LeadSaver
	mapper      *fieldmap.Mapper
	status      StatusUpdater
	mappingName string
	metrics     *metrics.Metrics
	log         logger.Logger
}

// NewEngine creates an upsert engine. status may be nil when the CRM is not
// configured; leads are then saved but never flagged as synced.
func NewEngine(store LeadStore, leads LeadSaver, mapper *fieldmap.Mapper, status StatusUpdater, mappingName string, m *metrics.Metrics, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store:       store,
		leads:       leads,
		mapper:      mapper,
		status:      status,
		mappingName: mappingName,
		metrics:     m,
		log:         log,
	}
}

// Mappings returns the configured mapping rows, falling back to the
// built-in defaults when none are stored
func (e *Engine) Mappings(ctx context.Context) ([]models.FieldMapping, error) {
	rows, err := e.store.GetFieldMappings(ctx, e.mappingName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		e.log.Warn("field mapping has no rows, using defaults", "mapping", e.mappingName)
		return fieldmap.DefaultMappings(), nil
	}
	return rows, nil
}

// Find looks up the local lead for payload by external id, email, mobile
// and phone, in that order. A blank key or a miss falls through to the
// next one. A contact match already linked to another CRM record is
// skipped, so two records sharing an email never trade one lead.
func (e *Engine) Find(ctx context.Context, keys models.LeadKeys) (*models.Lead, error) {
	lookups := []struct{ column, value string }{
		{models.FieldIntegrationID, keys.IntegrationID},
		{models.FieldEmailID, keys.Email},
		{models.FieldMobileNo, keys.Mobile},
		{models.FieldPhone, keys.Phone},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		lead, err := e.store.FindLeadByField(ctx, l.column, l.value)
		if err != nil {
			return nil, fmt.Errorf("failed to look up lead by %s: %w", l.column, err)
		}
		if lead == nil {
			continue
		}
		if l.column != models.FieldIntegrationID && keys.IntegrationID != "" &&
			lead.IntegrationLeadID != "" && lead.IntegrationLeadID != keys.IntegrationID {
			e.log.Info("contact match belongs to another crm record, skipped",
				"lead_id", lead.ID, "matched_by", l.column,
				"linked_to", lead.IntegrationLeadID, "integration_id", keys.IntegrationID)
			continue
		}
		return lead, nil
	}
	return nil, nil
}

// Upsert maps payload onto the matching lead, or a new one, and saves it.
// When the payload carries an external id the CRM record is marked
// Completed and the local sync flag follows the outcome of that call.
func (e *Engine) Upsert(ctx context.Context, payload map[string]any) (UpsertResult, error) {
	mappings, err := e.Mappings(ctx)
	if err != nil {
		return UpsertResult{}, err
	}

	keys := e.mapper.Keys(payload, mappings)
	lead, err := e.Find(ctx, keys)
	if err != nil {
		return UpsertResult{}, err
	}
	created := lead == nil
	if created {
		lead = &models.Lead{}
	}

	if keys.IntegrationID != "" {
		lead.IntegrationLeadID = keys.IntegrationID
	}
	if err := e.mapper.Apply(ctx, lead, payload, mappings); err != nil {
		return UpsertResult{}, err
	}
	fieldmap.EnsureLeadName(lead)
	lead.IntegrationSyncDone = false

	if err := e.leads.Save(ctx, lead); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to save lead: %w", err)
	}
	e.log.Info("lead upserted", "lead_id", lead.ID, "integration_id", keys.IntegrationID, "created", created)

	result := UpsertResult{Lead: lead, Created: created}
	if keys.IntegrationID == "" {
		return result, nil
	}
	result.Synced = e.acknowledge(ctx, lead)
	return result, nil
}

// acknowledge marks the CRM record Completed and stores the outcome in the
// local sync flag. Failures are logged, never returned.
func (e *Engine) acknowledge(ctx context.Context, lead *models.Lead) bool {
	synced := false
	if e.status == nil {
		e.log.Warn("crm client not configured, lead left unsynced", "lead_id", lead.ID)
	} else if err := e.status.UpdateLeadStatus(ctx, lead.IntegrationLeadID, crm.StatusCompleted); err != nil {
		e.metrics.RecordCRMCallback(false)
		e.log.Error("failed to mark crm lead completed", "lead_id", lead.ID, "integration_id", lead.IntegrationLeadID, "error", err)
	} else {
		e.metrics.RecordCRMCallback(true)
		synced = true
	}

	if err := e.store.UpdateLeadFields(ctx, lead.ID, map[string]any{models.FieldSyncDone: synced}); err != nil {
		e.log.Error("failed to store sync flag", "lead_id", lead.ID, "error", err)
		return false
	}
	lead.IntegrationSyncDone = synced
	return synced
}
