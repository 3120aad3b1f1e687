package leadowner

import (
	"context"
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// Store is the lead and user access the owner service needs
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context) ([]*models.Lead, error)
	UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error
}

type reconcilingKey struct{}
type namingKey struct{}

// Service keeps lead_owner consistent with assignments and lead_owner_name
// consistent with lead_owner
type Service struct {
	store   Store
	mode    Mode
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewService creates an owner service
func NewService(store Store, mode Mode, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if mode == "" {
		mode = ModeStrict
	}
	return &Service{store: store, mode: mode, log: log}
}

// WithMetrics makes the service count policy decisions on m
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// BeforeSave reconciles the owner of doc and then syncs its display name.
// Leads in manual owner mode only get the display-name sync.
func (s *Service) BeforeSave(ctx context.Context, doc, stored *models.Lead) error {
	if !doc.ChangeLeadOwner {
		if err := s.Reconcile(ctx, doc, stored); err != nil {
			return err
		}
	}
	return s.SyncOwnerName(ctx, doc)
}

// Reconcile applies the owner policy to doc. Calls nested inside a running
// reconciliation are no-ops.
func (s *Service) Reconcile(ctx context.Context, doc, stored *models.Lead) error {
	if ctx.Value(reconcilingKey{}) != nil {
		return nil
	}
	ctx = context.WithValue(ctx, reconcilingKey{}, true)

	target, err := s.Target(ctx, doc)
	if err != nil {
		return err
	}

	in := Input{Doc: doc.LeadOwner, IsNew: stored == nil, Target: target}
	if stored != nil {
		in.Stored = stored.LeadOwner
		in.PreviousAssigned = stored.AssignedUser()
	}

	owner, decision := Decide(s.mode, in)
	s.metrics.RecordOwnerDecision(string(decision))
	if owner != doc.LeadOwner {
		s.log.Info("lead owner reconciled",
			"lead_id", doc.ID, "from", doc.LeadOwner, "to", owner, "decision", string(decision))
	}
	doc.LeadOwner = owner
	return nil
}

// SyncOwnerName sets lead_owner_name to the display name of lead_owner
func (s *Service) SyncOwnerName(ctx context.Context, doc *models.Lead) error {
	if ctx.Value(namingKey{}) != nil {
		return nil
	}
	ctx = context.WithValue(ctx, namingKey{}, true)

	doc.LeadOwner = orAdministrator(doc.LeadOwner)
	name, err := s.DisplayName(ctx, doc.LeadOwner)
	if err != nil {
		return err
	}
	doc.LeadOwnerName = name
	return nil
}

// Target is the owner the assignment implies: the first assignee when that
// user exists, otherwise Administrator
func (s *Service) Target(ctx context.Context, lead *models.Lead) (string, error) {
	assigned := lead.AssignedUser()
	if assigned == "" || assigned == models.AdministratorUser {
		return models.AdministratorUser, nil
	}
	exists, err := s.store.UserExists(ctx, assigned)
	if err != nil {
		return "", fmt.Errorf("failed to check assigned user %s: %w", assigned, err)
	}
	if !exists {
		return models.AdministratorUser, nil
	}
	return assigned, nil
}

// DisplayName resolves a user's full name, falling back to the identifier
// when the user record is missing
func (s *Service) DisplayName(ctx context.Context, userID string) (string, error) {
	if userID == "" || userID == models.AdministratorUser {
		return models.AdministratorUser, nil
	}
	u, err := s.store.GetUser(ctx, userID)
	if domain.IsNotFound(err) {
		return userID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return u.DisplayName(), nil
}

// SyncFromAssignment sets one lead's owner to its assignment target,
// bypassing the save hooks and the manual-override rules
func (s *Service) SyncFromAssignment(ctx context.Context, leadID string) models.OwnerSyncResult {
	if leadID == "" {
		return models.OwnerSyncResult{Success: false, Message: "Lead name is required"}
	}

	result, err := s.syncFromAssignment(ctx, leadID)
	if err != nil {
		s.log.Error("failed to sync lead owner from assignment", "lead_id", leadID, "error", err)
		return models.OwnerSyncResult{Success: false, Message: err.Error()}
	}
	return result
}

func (s *Service) syncFromAssignment(ctx context.Context, leadID string) (models.OwnerSyncResult, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return models.OwnerSyncResult{}, err
	}

	updates, target, name, err := s.ownerUpdates(ctx, lead)
	if err != nil {
		return models.OwnerSyncResult{}, err
	}

	result := models.OwnerSyncResult{Success: true, NewOwner: target, NewOwnerName: name}
	if len(updates) == 0 {
		result.Message = "Lead Owner already correct"
		return result, nil
	}
	if err := s.store.UpdateLeadFields(ctx, leadID, updates); err != nil {
		return models.OwnerSyncResult{}, err
	}
	result.Message = "Lead Owner updated to " + target
	return result, nil
}

// ownerUpdates computes the column changes that bring a lead's owner and
// owner name in line with its assignment
func (s *Service) ownerUpdates(ctx context.Context, lead *models.Lead) (map[string]any, string, string, error) {
	target, err := s.Target(ctx, lead)
	if err != nil {
		return nil, "", "", err
	}
	name, err := s.DisplayName(ctx, target)
	if err != nil {
		return nil, "", "", err
	}

	updates := map[string]any{}
	if lead.LeadOwner != target {
		updates[models.FieldLeadOwner] = target
	}
	if lead.LeadOwnerName != name {
		updates[models.FieldLeadOwnerName] = name
	}
	return updates, target, name, nil
}

// ResyncAll sets every lead's owner to its assignment target. Leads in
// manual owner mode are skipped. Per-lead failures are counted and the
// loop continues; earlier updates stay committed.
func (s *Service) ResyncAll(ctx context.Context) models.SyncSummary {
	leads, err := s.store.ListLeads(ctx)
	if err != nil {
		s.log.Error("failed to list leads for owner resync", "error", err)
		return models.SyncSummary{Success: false, Message: err.Error()}
	}

	summary := models.SyncSummary{Success: true, Total: len(leads)}
	s.log.Info("resyncing lead owners", "total", len(leads))

	for _, lead := range leads {
		if lead.ChangeLeadOwner {
			summary.Skipped++
			continue
		}

		updates, _, _, err := s.ownerUpdates(ctx, lead)
		if err == nil && len(updates) > 0 {
			err = s.store.UpdateLeadFields(ctx, lead.ID, updates)
		}
		switch {
		case err != nil:
			summary.Errors++
			s.log.Error("failed to resync lead owner", "lead_id", lead.ID, "error", err)
		case len(updates) > 0:
			summary.Updated++
		default:
			summary.Skipped++
		}
	}

	summary.Message = fmt.Sprintf("Sync completed! Updated: %d, Skipped: %d, Errors: %d",
		summary.Updated, summary.Skipped, summary.Errors)
	s.log.Info("lead owner resync finished",
		"updated", summary.Updated, "skipped", summary.Skipped, "errors", summary.Errors)
	return summary
}

// BackfillOwnerNames fills lead_owner_name from lead_owner on every lead
// that has an owner
func (s *Service) BackfillOwnerNames(ctx context.Context) models.SyncSummary {
	all, err := s.store.ListLeads(ctx)
	if err != nil {
		s.log.Error("failed to list leads for owner name backfill", "error", err)
		return models.SyncSummary{Success: false, Message: err.Error()}
	}

	var leads []*models.Lead
	for _, l := range all {
		if l.LeadOwner != "" {
			leads = append(leads, l)
		}
	}

	summary := models.SyncSummary{Success: true, Total: len(leads)}
	for _, lead := range leads {
		name, err := s.DisplayName(ctx, lead.LeadOwner)
		if err == nil && name != lead.LeadOwnerName {
			err = s.store.UpdateLeadFields(ctx, lead.ID, map[string]any{models.FieldLeadOwnerName: name})
			if err == nil {
				summary.Updated++
				continue
			}
		}
		if err != nil {
			summary.Errors++
			s.log.Error("failed to backfill lead owner name", "lead_id", lead.ID, "error", err)
			continue
		}
		summary.Skipped++
	}

	summary.Message = fmt.Sprintf("Update completed! Updated: %d, Skipped: %d, Errors: %d, Total processed: %d",
		summary.Updated, summary.Skipped, summary.Errors, summary.Total)
	return summary
}
