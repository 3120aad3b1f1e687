package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
)

var ruleColumns = []string{
	"name", "document_type", "description", "assign_condition", "source", "rule",
	"disabled", "priority", "days", "users", "last_user", "created_at", "updated_at",
}

func scanRule(rows *entsql.Rows) (*models.AssignmentRule, error) {
	r := &models.AssignmentRule{}
	var days, users string
	err := rows.Scan(&r.Name, &r.DocumentType, &r.Description, &r.AssignCondition, &r.Source, &r.Rule,
		&r.Disabled, &r.Priority, &days, &users, &r.LastUser, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.Days, err = decodeList(days); err != nil {
		return nil, fmt.Errorf("rule %s has malformed days: %w", r.Name, err)
	}
	if r.Users, err = decodeList(users); err != nil {
		return nil, fmt.Errorf("rule %s has malformed users: %w", r.Name, err)
	}
	return r, nil
}

// GetAssignmentRule loads a rule by name, or nil when it does not exist
func (s *Store) GetAssignmentRule(ctx context.Context, name string) (*models.AssignmentRule, error) {
	rules, err := s.selectRules(ctx, entsql.EQ("name", name))
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules[0], nil
}

// ListAssignmentRules returns rules whose name starts with prefix, ordered
// by priority then name. An empty prefix lists every rule.
func (s *Store) ListAssignmentRules(ctx context.Context, prefix string) ([]*models.AssignmentRule, error) {
	var p *entsql.Predicate
	if prefix != "" {
		p = entsql.HasPrefix("name", prefix)
	}
	return s.selectRules(ctx, p)
}

func (s *Store) selectRules(ctx context.Context, p *entsql.Predicate) ([]*models.AssignmentRule, error) {
	sel := s.builder().Select(ruleColumns...).
		From(s.builder().Table(database.TableAssignmentRules)).
		OrderBy("priority", "name")
	if p != nil {
		sel.Where(p)
	}
	query, args := sel.Query()

	var rules []*models.AssignmentRule
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		r, err := scanRule(rows)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment rules: %w", err)
	}
	return rules, nil
}

// InsertAssignmentRule stores a new rule
func (s *Store) InsertAssignmentRule(ctx context.Context, r *models.AssignmentRule) error {
	days, err := encodeList(r.Days)
	if err != nil {
		return err
	}
	users, err := encodeList(r.Users)
	if err != nil {
		return err
	}
	now := s.timestamp()
	r.CreatedAt, r.UpdatedAt = now, now

	query, args := s.builder().Insert(database.TableAssignmentRules).
		Columns(ruleColumns...).
		Values(r.Name, r.DocumentType, r.Description, r.AssignCondition, r.Source, r.Rule,
			r.Disabled, r.Priority, days, users, r.LastUser, r.CreatedAt, r.UpdatedAt).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to insert assignment rule %s: %w", r.Name, err)
	}
	return nil
}

// UpdateAssignmentRule rewrites a rule's configuration. The round-robin
// cursor (last_user) is left alone.
func (s *Store) UpdateAssignmentRule(ctx context.Context, r *models.AssignmentRule) error {
	days, err := encodeList(r.Days)
	if err != nil {
		return err
	}
	users, err := encodeList(r.Users)
	if err != nil {
		return err
	}
	r.UpdatedAt = s.timestamp()

	query, args := s.builder().Update(database.TableAssignmentRules).
		Set("document_type", r.DocumentType).
		Set("description", r.Description).
		Set("assign_condition", r.AssignCondition).
		Set("source", r.Source).
		Set("rule", r.Rule).
		Set("disabled", r.Disabled).
		Set("priority", r.Priority).
		Set("days", days).
		Set("users", users).
		Set("updated_at", r.UpdatedAt).
		Where(entsql.EQ("name", r.Name)).
		Query()
	n, err := exec(ctx, s.drv, query, args)
	if err != nil {
		return fmt.Errorf("failed to update assignment rule %s: %w", r.Name, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("assignment rule " + r.Name)
	}
	return nil
}

// SetRuleLastUser advances the round-robin cursor of a rule
func (s *Store) SetRuleLastUser(ctx context.Context, name, user string) error {
	query, args := s.builder().Update(database.TableAssignmentRules).
		Set("last_user", user).
		Set("updated_at", s.timestamp()).
		Where(entsql.EQ("name", name)).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to advance assignment rule %s: %w", name, err)
	}
	return nil
}

// DeleteAssignmentRule removes a rule by name
func (s *Store) DeleteAssignmentRule(ctx context.Context, name string) error {
	query, args := s.builder().Delete(database.TableAssignmentRules).
		Where(entsql.EQ("name", name)).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to delete assignment rule %s: %w", name, err)
	}
	return nil
}
