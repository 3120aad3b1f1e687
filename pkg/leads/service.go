package leads

import (
	"context"
	"fmt"

	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// Store is the lead persistence the service writes through
type Store interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	InsertLead(ctx context.Context, lead *models.Lead) error
	UpdateLead(ctx context.Context, lead *models.Lead) error
	ListLeads(ctx context.Context) ([]*models.Lead, error)
}

// Hook runs before a lead is persisted. stored is the persisted copy, or
// nil when the lead is new. Hooks may modify doc.
type Hook interface {
	BeforeSave(ctx context.Context, doc, stored *models.Lead) error
}

// HookFunc adapts a function to Hook
type HookFunc func(ctx context.Context, doc, stored *models.Lead) error

// BeforeSave calls f
func (f HookFunc) BeforeSave(ctx context.Context, doc, stored *models.Lead) error {
	return f(ctx, doc, stored)
}

type savingKey struct{}

// InSave reports whether ctx belongs to a save that is already running its
// hooks. Nested saves made with such a context skip the hooks.
func InSave(ctx context.Context) bool {
	v, _ := ctx.Value(savingKey{}).(bool)
	return v
}

// Service creates and updates leads through the before-save hooks
type Service struct {
	store Store
	hooks []Hook
	log   logger.Logger
}

// NewService creates a lead service. Hooks run in the order given.
func NewService(store Store, log logger.Logger, hooks ...Hook) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, hooks: hooks, log: log}
}

// Use appends a hook
func (s *Service) Use(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Get loads a lead
func (s *Service) Get(ctx context.Context, id string) (*models.Lead, error) {
	return s.store.GetLead(ctx, id)
}

// List returns every lead
func (s *Service) List(ctx context.Context) ([]*models.Lead, error) {
	return s.store.ListLeads(ctx)
}

// Save runs the hooks and inserts or updates lead. A lead with an ID that
// is not stored yet is inserted under that ID.
func (s *Service) Save(ctx context.Context, lead *models.Lead) error {
	var stored *models.Lead
	if lead.ID != "" {
		existing, err := s.store.GetLead(ctx, lead.ID)
		switch {
		case err == nil:
			stored = existing
		case !domain.IsNotFound(err):
			return fmt.Errorf("failed to load stored lead: %w", err)
		}
	}

	if !InSave(ctx) {
		hookCtx := context.WithValue(ctx, savingKey{}, true)
		for _, h := range s.hooks {
			if err := h.BeforeSave(hookCtx, lead, stored); err != nil {
				return err
			}
		}
	}

	if stored == nil {
		if err := s.store.InsertLead(ctx, lead); err != nil {
			return err
		}
		s.log.Debug("lead inserted", "lead_id", lead.ID)
		return nil
	}
	if err := s.store.UpdateLead(ctx, lead); err != nil {
		return err
	}
	s.log.Debug("lead updated", "lead_id", lead.ID)
	return nil
}

// Create saves a new lead built from an admin request
func (s *Service) Create(ctx context.Context, req models.LeadRequest) (*models.Lead, error) {
	lead := &models.Lead{LeadOwner: models.AdministratorUser}
	req.ApplyTo(lead)
	fieldmap.EnsureLeadName(lead)
	if err := s.Save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// Update applies an admin request to a stored lead and saves it
func (s *Service) Update(ctx context.Context, id string, req models.LeadRequest) (*models.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	req.ApplyTo(lead)
	if err := s.Save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}
