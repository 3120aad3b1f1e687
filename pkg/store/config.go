package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/jordanlanch/leadsync/pkg/models"
)

// settingsRowID is the primary key of the integration settings singleton
const settingsRowID = 1

// GetFieldMappings returns the rows of the named mapping in idx order
func (s *Store) GetFieldMappings(ctx context.Context, name string) ([]models.FieldMapping, error) {
	query, args := s.builder().Select("idx", "internal_field", "external_field").
		From(s.builder().Table(database.TableFieldMappings)).
		Where(entsql.EQ("mapping_name", name)).
		OrderBy("idx", "id").
		Query()

	var rows []models.FieldMapping
	err := queryAll(ctx, s.drv, query, args, func(r *entsql.Rows) error {
		var m models.FieldMapping
		if err := r.Scan(&m.Idx, &m.InternalField, &m.ExternalField); err != nil {
			return err
		}
		rows = append(rows, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load field mapping %q: %w", name, err)
	}
	return rows, nil
}

// ReplaceFieldMappings swaps the rows of the named mapping in one transaction.
// Rows are renumbered from 1 in the given order.
func (s *Store) ReplaceFieldMappings(ctx context.Context, name string, rows []models.FieldMapping) error {
	return s.withTx(ctx, func(tx dialect.Tx) error {
		query, args := s.builder().Delete(database.TableFieldMappings).
			Where(entsql.EQ("mapping_name", name)).
			Query()
		if _, err := exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("failed to clear field mapping %q: %w", name, err)
		}

		for i, m := range rows {
			query, args := s.builder().Insert(database.TableFieldMappings).
				Columns("mapping_name", "idx", "internal_field", "external_field").
				Values(name, i+1, m.InternalField, m.ExternalField).
				Query()
			if _, err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("failed to insert field mapping row %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// GetCRMRuleRows returns the CRM rule table in idx order
func (s *Store) GetCRMRuleRows(ctx context.Context) ([]models.CRMRuleRow, error) {
	query, args := s.builder().Select("idx", "lead_source", "assigned_user").
		From(s.builder().Table(database.TableCRMRuleRows)).
		OrderBy("idx", "id").
		Query()

	var rows []models.CRMRuleRow
	err := queryAll(ctx, s.drv, query, args, func(r *entsql.Rows) error {
		var row models.CRMRuleRow
		if err := r.Scan(&row.Idx, &row.LeadSource, &row.User); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load CRM rule rows: %w", err)
	}
	return rows, nil
}

// ReplaceCRMRuleRows swaps the CRM rule table in one transaction
func (s *Store) ReplaceCRMRuleRows(ctx context.Context, rows []models.CRMRuleRow) error {
	return s.withTx(ctx, func(tx dialect.Tx) error {
		query, args := s.builder().Delete(database.TableCRMRuleRows).Query()
		if _, err := exec(ctx, tx, query, args); err != nil {
			return fmt.Errorf("failed to clear CRM rule rows: %w", err)
		}

		for i, row := range rows {
			query, args := s.builder().Insert(database.TableCRMRuleRows).
				Columns("idx", "lead_source", "assigned_user").
				Values(i+1, row.LeadSource, row.User).
				Query()
			if _, err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("failed to insert CRM rule row %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// GetSettings loads the integration settings singleton, or nil if it was
// never saved
func (s *Store) GetSettings(ctx context.Context) (*models.IntegrationSettings, error) {
	query, args := s.builder().Select("access_token", "refresh_token", "token_expiry", "updated_at").
		From(s.builder().Table(database.TableIntegrationSettings)).
		Where(entsql.EQ("id", settingsRowID)).
		Query()

	var found *models.IntegrationSettings
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		var (
			settings models.IntegrationSettings
			expiry   sql.NullTime
		)
		if err := rows.Scan(&settings.AccessToken, &settings.RefreshToken, &expiry, &settings.UpdatedAt); err != nil {
			return err
		}
		if expiry.Valid {
			t := expiry.Time
			settings.TokenExpiry = &t
		}
		found = &settings
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load integration settings: %w", err)
	}
	return found, nil
}

// SaveSettings writes the integration settings singleton, creating it when
// missing
func (s *Store) SaveSettings(ctx context.Context, settings *models.IntegrationSettings) error {
	existing, err := s.GetSettings(ctx)
	if err != nil {
		return err
	}

	settings.UpdatedAt = s.timestamp()
	var expiry any
	if settings.TokenExpiry != nil {
		expiry = settings.TokenExpiry.UTC()
	}

	var query string
	var args []any
	if existing == nil {
		query, args = s.builder().Insert(database.TableIntegrationSettings).
			Columns("id", "access_token", "refresh_token", "token_expiry", "updated_at").
			Values(settingsRowID, settings.AccessToken, settings.RefreshToken, expiry, settings.UpdatedAt).
			Query()
	} else {
		query, args = s.builder().Update(database.TableIntegrationSettings).
			Set("access_token", settings.AccessToken).
			Set("refresh_token", settings.RefreshToken).
			Set("token_expiry", expiry).
			Set("updated_at", settings.UpdatedAt).
			Where(entsql.EQ("id", settingsRowID)).
			Query()
	}
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to save integration settings: %w", err)
	}
	return nil
}

// EnsureIndustryType creates the industry type when it does not exist yet.
// It reports whether a row was created.
func (s *Store) EnsureIndustryType(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}

	query, args := s.builder().Select("name").
		From(s.builder().Table(database.TableIndustryTypes)).
		Where(entsql.EQ("name", name)).
		Query()

	exists := false
	if err := queryAll(ctx, s.drv, query, args, func(*entsql.Rows) error {
		exists = true
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to query industry type: %w", err)
	}
	if exists {
		return false, nil
	}

	query, args = s.builder().Insert(database.TableIndustryTypes).
		Columns("name", "created_at").
		Values(name, s.timestamp()).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return false, fmt.Errorf("failed to create industry type %q: %w", name, err)
	}
	return true, nil
}

// ListIndustryTypes returns all industry type names
func (s *Store) ListIndustryTypes(ctx context.Context) ([]string, error) {
	query, args := s.builder().Select("name").
		From(s.builder().Table(database.TableIndustryTypes)).
		OrderBy("name").
		Query()

	var names []string
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		var n string
		if err := rows.Scan(&n); err != nil {
			return err
		}
		names = append(names, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list industry types: %w", err)
	}
	return names, nil
}
