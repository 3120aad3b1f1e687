package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
)

func leadSelectColumns() []string {
	cols := []string{"id"}
	cols = append(cols, models.LeadStringColumns()...)
	return append(cols,
		models.FieldAnnualRevenue,
		models.FieldAssign,
		models.FieldChangeOwner,
		models.FieldSyncDone,
		"created_at",
		"updated_at",
	)
}

func scanLead(rows *entsql.Rows) (*models.Lead, error) {
	l := &models.Lead{}
	names := models.LeadStringColumns()

	dest := make([]any, 0, len(names)+7)
	dest = append(dest, &l.ID)
	for _, name := range names {
		p, _ := l.StringField(name)
		dest = append(dest, p)
	}
	var assign string
	dest = append(dest, &l.AnnualRevenue, &assign, &l.ChangeLeadOwner, &l.IntegrationSyncDone, &l.CreatedAt, &l.UpdatedAt)

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	list, err := decodeList(assign)
	if err != nil {
		return nil, fmt.Errorf("lead %s has malformed assignment list: %w", l.ID, err)
	}
	l.Assign = list
	return l, nil
}

func leadValues(l *models.Lead) ([]any, error) {
	assign, err := encodeList(l.Assign)
	if err != nil {
		return nil, err
	}

	values := []any{l.ID}
	for _, name := range models.LeadStringColumns() {
		p, _ := l.StringField(name)
		values = append(values, *p)
	}
	return append(values, l.AnnualRevenue, assign, l.ChangeLeadOwner, l.IntegrationSyncDone, l.CreatedAt, l.UpdatedAt), nil
}

// InsertLead stores a new lead. An empty ID is filled with a fresh UUID.
func (s *Store) InsertLead(ctx context.Context, l *models.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := s.timestamp()
	l.CreatedAt, l.UpdatedAt = now, now

	values, err := leadValues(l)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}

	query, args := s.builder().Insert(database.TableLeads).
		Columns(leadSelectColumns()...).
		Values(values...).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// UpdateLead writes every column of an existing lead
func (s *Store) UpdateLead(ctx context.Context, l *models.Lead) error {
	l.UpdatedAt = s.timestamp()

	values, err := leadValues(l)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}

	update := s.builder().Update(database.TableLeads)
	cols := leadSelectColumns()
	for i, col := range cols {
		if col == "id" || col == "created_at" {
			continue
		}
		update.Set(col, values[i])
	}

	query, args := update.Where(entsql.EQ("id", l.ID)).Query()
	n, err := exec(ctx, s.drv, query, args)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("lead " + l.ID)
	}
	return nil
}

// UpdateLeadFields sets individual columns without running save hooks.
// A []string value for the assignment column is stored as JSON.
func (s *Store) UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	update := s.builder().Update(database.TableLeads)
	for col, v := range fields {
		if list, ok := v.([]string); ok {
			encoded, err := encodeList(list)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", col, err)
			}
			v = encoded
		}
		update.Set(col, v)
	}
	update.Set("updated_at", s.timestamp())

	query, args := update.Where(entsql.EQ("id", id)).Query()
	n, err := exec(ctx, s.drv, query, args)
	if err != nil {
		return fmt.Errorf("failed to update lead %s: %w", id, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("lead " + id)
	}
	return nil
}

// GetLead loads one lead by primary key
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.findLead(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.NewNotFoundError("lead " + id)
	}
	return lead, nil
}

// FindLeadByField returns the oldest lead whose column equals value, or
// nil when there is none. Blank values never match.
func (s *Store) FindLeadByField(ctx context.Context, column, value string) (*models.Lead, error) {
	if value == "" {
		return nil, nil
	}
	return s.findLead(ctx, entsql.EQ(column, value))
}

func (s *Store) findLead(ctx context.Context, p *entsql.Predicate) (*models.Lead, error) {
	query, args := s.builder().Select(leadSelectColumns()...).
		From(s.builder().Table(database.TableLeads)).
		Where(p).
		OrderBy("created_at").
		Limit(1).
		Query()

	var found *models.Lead
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		l, err := scanLead(rows)
		found = l
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return found, nil
}

// ListLeads returns every lead ordered by creation time
func (s *Store) ListLeads(ctx context.Context) ([]*models.Lead, error) {
	query, args := s.builder().Select(leadSelectColumns()...).
		From(s.builder().Table(database.TableLeads)).
		OrderBy("created_at", "id").
		Query()

	var leads []*models.Lead
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		l, err := scanLead(rows)
		if err != nil {
			return err
		}
		leads = append(leads, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// CountLeads returns the number of stored leads
func (s *Store) CountLeads(ctx context.Context) (int, error) {
	query, args := s.builder().Select(entsql.Count("*")).
		From(s.builder().Table(database.TableLeads)).
		Query()

	var n int
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// HasSyncedLead reports whether a lead carrying the external id has already
// been acknowledged back to the CRM
func (s *Store) HasSyncedLead(ctx context.Context, integrationID string) (bool, error) {
	if integrationID == "" {
		return false, nil
	}
	lead, err := s.findLead(ctx, entsql.And(
		entsql.EQ(models.FieldIntegrationID, integrationID),
		entsql.EQ(models.FieldSyncDone, true),
	))
	if err != nil {
		return false, err
	}
	return lead != nil, nil
}
