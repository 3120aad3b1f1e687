package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/jordanlanch/leadsync/pkg/assignment"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// RulePrefix names every assignment rule derived from the CRM rule table
const RulePrefix = "Lead Source - "

// Weekdays is the schedule given to every derived rule
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Store is the persistence used by the rule service
type Store interface {
	UserExists(ctx context.Context, id string) (bool, error)
	GetCRMRuleRows(ctx context.Context) ([]models.CRMRuleRow, error)
	ReplaceCRMRuleRows(ctx context.Context, rows []models.CRMRuleRow) error
	GetAssignmentRule(ctx context.Context, name string) (*models.AssignmentRule, error)
	ListAssignmentRules(ctx context.Context, prefix string) ([]*models.AssignmentRule, error)
	InsertAssignmentRule(ctx context.Context, r *models.AssignmentRule) error
	UpdateAssignmentRule(ctx context.Context, r *models.AssignmentRule) error
	DeleteAssignmentRule(ctx context.Context, name string) error
}

// SourceGroup is the deduplicated user pool of one lead source
type SourceGroup struct {
	Source string
	Users  []string
}

// GroupBySource groups complete rows by lead source in first-seen order.
// Rows missing either side are ignored.
func GroupBySource(rows []models.CRMRuleRow) []SourceGroup {
	var groups []SourceGroup
	index := map[string]int{}
	seen := map[string]map[string]bool{}

	for _, row := range rows {
		source, user := strings.TrimSpace(row.LeadSource), strings.TrimSpace(row.User)
		if source == "" || user == "" {
			continue
		}
		i, ok := index[source]
		if !ok {
			i = len(groups)
			index[source] = i
			seen[source] = map[string]bool{}
			groups = append(groups, SourceGroup{Source: source})
		}
		if seen[source][user] {
			continue
		}
		seen[source][user] = true
		groups[i].Users = append(groups[i].Users, user)
	}
	return groups
}

// RuleName is the assignment rule name derived from a lead source
func RuleName(source string) string {
	return RulePrefix + source
}

// Service stores the CRM rule table and derives assignment rules from it
type Service struct {
	store Store
	log   logger.Logger
}

// NewService creates a rule service
func NewService(store Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log}
}

// Rows returns the stored CRM rule table
func (s *Service) Rows(ctx context.Context) ([]models.CRMRuleRow, error) {
	return s.store.GetCRMRuleRows(ctx)
}

// AssignmentRules lists the derived assignment rules
func (s *Service) AssignmentRules(ctx context.Context) ([]*models.AssignmentRule, error) {
	return s.store.ListAssignmentRules(ctx, RulePrefix)
}

// Save validates and stores the CRM rule table, then syncs the derived
// assignment rules. Nothing is stored when validation fails.
func (s *Service) Save(ctx context.Context, rows []models.CRMRuleRow) (models.RuleSyncSummary, error) {
	groups := GroupBySource(rows)
	if len(rows) > 0 && len(groups) == 0 {
		return models.RuleSyncSummary{}, domain.NewValidationError(
			"At least one Lead Source and User must be assigned in the Assignment Rules table")
	}
	for _, g := range groups {
		for _, u := range g.Users {
			ok, err := s.store.UserExists(ctx, u)
			if err != nil {
				return models.RuleSyncSummary{}, fmt.Errorf("failed to check user %s: %w", u, err)
			}
			if !ok {
				return models.RuleSyncSummary{}, domain.NewValidationError(fmt.Sprintf("User %s does not exist", u))
			}
		}
	}

	if err := s.store.ReplaceCRMRuleRows(ctx, rows); err != nil {
		return models.RuleSyncSummary{}, err
	}
	return s.sync(ctx, groups, len(rows))
}

// Sync re-derives the assignment rules from the stored table
func (s *Service) Sync(ctx context.Context) (models.RuleSyncSummary, error) {
	rows, err := s.store.GetCRMRuleRows(ctx)
	if err != nil {
		return models.RuleSyncSummary{}, err
	}
	groups := GroupBySource(rows)
	if len(rows) > 0 && len(groups) == 0 {
		return models.RuleSyncSummary{}, domain.NewValidationError(
			"At least one Lead Source and User must be assigned in the Assignment Rules table")
	}
	return s.sync(ctx, groups, len(rows))
}

func (s *Service) sync(ctx context.Context, groups []SourceGroup, rowCount int) (models.RuleSyncSummary, error) {
	var summary models.RuleSyncSummary
	if rowCount == 0 {
		summary.Message = "No assignment rules defined"
		s.log.Info(summary.Message)
		return summary, nil
	}

	existing, err := s.store.ListAssignmentRules(ctx, RulePrefix)
	if err != nil {
		return summary, err
	}

	current := make(map[string]bool, len(groups))
	for _, g := range groups {
		rule := &models.AssignmentRule{
			Name:            RuleName(g.Source),
			DocumentType:    assignment.DocumentTypeLead,
			Description:     "Auto-assignment of Leads from " + g.Source,
			AssignCondition: assignment.EqualsCondition("source", g.Source),
			Source:          g.Source,
			Rule:            assignment.RuleRoundRobin,
			Days:            append([]string(nil), Weekdays...),
			Users:           g.Users,
		}
		current[rule.Name] = true

		found, err := s.store.GetAssignmentRule(ctx, rule.Name)
		if err != nil {
			return summary, err
		}
		if found == nil {
			if err := s.store.InsertAssignmentRule(ctx, rule); err != nil {
				return summary, err
			}
			summary.Created++
			continue
		}
		if err := s.store.UpdateAssignmentRule(ctx, rule); err != nil {
			return summary, err
		}
		summary.Updated++
	}

	for _, r := range existing {
		if current[r.Name] {
			continue
		}
		if err := s.store.DeleteAssignmentRule(ctx, r.Name); err != nil {
			return summary, err
		}
		summary.Deleted++
	}

	summary.Message = summaryMessage(summary)
	s.log.Info("assignment rules synced",
		"created", summary.Created, "updated", summary.Updated, "deleted", summary.Deleted)
	return summary, nil
}

func summaryMessage(s models.RuleSyncSummary) string {
	var parts []string
	if s.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d Assignment Rule(s) created", s.Created))
	}
	if s.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d Assignment Rule(s) updated", s.Updated))
	}
	if s.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d Assignment Rule(s) deleted", s.Deleted))
	}
	return strings.Join(parts, ", ")
}
