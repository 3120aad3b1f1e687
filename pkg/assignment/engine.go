package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// Rule kinds and the document type rules apply to
const (
	RuleRoundRobin   = "Round Robin"
	DocumentTypeLead = "Lead"
)

// RuleStore reads rules and advances their round-robin cursor
type RuleStore interface {
	ListAssignmentRules(ctx context.Context, prefix string) ([]*models.AssignmentRule, error)
	SetRuleLastUser(ctx context.Context, name, user string) error
}

// Engine assigns unassigned leads to users with round-robin rules
type Engine struct {
	rules RuleStore
	log   logger.Logger
	now   func() time.Time
}

// NewEngine creates an assignment engine
func NewEngine(rules RuleStore, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{rules: rules, log: log, now: time.Now}
}

// BeforeSave assigns doc when it has no assignment yet
func (e *Engine) BeforeSave(ctx context.Context, doc, _ *models.Lead) error {
	if len(doc.Assign) > 0 {
		return nil
	}

	rule, err := e.Match(ctx, doc)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}

	user := NextUser(rule)
	doc.Assign = append(doc.Assign, user)
	if err := e.rules.SetRuleLastUser(ctx, rule.Name, user); err != nil {
		return fmt.Errorf("failed to advance rule %s: %w", rule.Name, err)
	}
	e.log.Info("lead assigned by rule", "rule", rule.Name, "user", user, "lead_id", doc.ID)
	return nil
}

// Match returns the first active rule whose condition holds for lead, or nil.
// Rules are considered by priority, then name.
func (e *Engine) Match(ctx context.Context, lead *models.Lead) (*models.AssignmentRule, error) {
	rules, err := e.rules.ListAssignmentRules(ctx, "")
	if err != nil {
		return nil, err
	}

	today := e.now().Weekday().String()
	for _, r := range rules {
		if !e.active(r, today) {
			continue
		}
		cond, err := ParseCondition(r.AssignCondition)
		if err != nil {
			e.log.Warn("skipping assignment rule", "rule", r.Name, "error", err)
			continue
		}
		if cond.Matches(lead) {
			return r, nil
		}
	}
	return nil, nil
}

func (e *Engine) active(r *models.AssignmentRule, weekday string) bool {
	if r.Disabled || len(r.Users) == 0 || r.Rule != RuleRoundRobin {
		return false
	}
	if r.DocumentType != "" && r.DocumentType != DocumentTypeLead {
		return false
	}
	if len(r.Days) == 0 {
		return true
	}
	for _, d := range r.Days {
		if d == weekday {
			return true
		}
	}
	return false
}

// NextUser returns the user after the rule's last assignee, wrapping around.
// An unknown or empty cursor starts at the first user.
func NextUser(r *models.AssignmentRule) string {
	for i, u := range r.Users {
		if u == r.LastUser {
			return r.Users[(i+1)%len(r.Users)]
		}
	}
	return r.Users[0]
}
