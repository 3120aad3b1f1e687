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

var logColumns = []string{"id", "status", "data", "integration_id", "response_message", "lead", "created_at", "updated_at"}

func scanLog(rows *entsql.Rows) (*models.IntegrationLog, error) {
	l := &models.IntegrationLog{}
	err := rows.Scan(&l.ID, &l.Status, &l.Data, &l.IntegrationID, &l.ResponseMessage, &l.Lead, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// InsertLog stores a new integration log entry
func (s *Store) InsertLog(ctx context.Context, l *models.IntegrationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.LogStatusPending
	}
	now := s.timestamp()
	l.CreatedAt, l.UpdatedAt = now, now

	query, args := s.builder().Insert(database.TableIntegrationLogs).
		Columns(logColumns...).
		Values(l.ID, l.Status, l.Data, l.IntegrationID, l.ResponseMessage, l.Lead, l.CreatedAt, l.UpdatedAt).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to insert integration log: %w", err)
	}
	return nil
}

// GetLog loads one integration log entry
func (s *Store) GetLog(ctx context.Context, id string) (*models.IntegrationLog, error) {
	query, args := s.builder().Select(logColumns...).
		From(s.builder().Table(database.TableIntegrationLogs)).
		Where(entsql.EQ("id", id)).
		Query()

	var found *models.IntegrationLog
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		l, err := scanLog(rows)
		found = l
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query integration log: %w", err)
	}
	if found == nil {
		return nil, domain.NewNotFoundError("integration log " + id)
	}
	return found, nil
}

// ListLogs returns log entries newest first
func (s *Store) ListLogs(ctx context.Context, filter models.IntegrationLogFilter) ([]*models.IntegrationLog, error) {
	sel := s.builder().Select(logColumns...).
		From(s.builder().Table(database.TableIntegrationLogs)).
		OrderBy(entsql.Desc("created_at"))
	if filter.Status != "" {
		sel.Where(entsql.EQ("status", filter.Status))
	}
	// OFFSET is only valid together with LIMIT on SQLite
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
		if filter.Offset > 0 {
			sel.Offset(filter.Offset)
		}
	}
	query, args := sel.Query()

	var logs []*models.IntegrationLog
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		l, err := scanLog(rows)
		if err != nil {
			return err
		}
		logs = append(logs, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list integration logs: %w", err)
	}
	return logs, nil
}

// ListLogIDsByStatus returns the ids of entries in status, oldest first
func (s *Store) ListLogIDsByStatus(ctx context.Context, status string) ([]string, error) {
	query, args := s.builder().Select("id").
		From(s.builder().Table(database.TableIntegrationLogs)).
		Where(entsql.EQ("status", status)).
		OrderBy("created_at", "id").
		Query()

	var ids []string
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s integration logs: %w", status, err)
	}
	return ids, nil
}

// CountLogs counts entries in status; an empty status counts all entries
func (s *Store) CountLogs(ctx context.Context, status string) (int, error) {
	sel := s.builder().Select(entsql.Count("*")).
		From(s.builder().Table(database.TableIntegrationLogs))
	if status != "" {
		sel.Where(entsql.EQ("status", status))
	}
	query, args := sel.Query()

	var n int
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count integration logs: %w", err)
	}
	return n, nil
}

// UpdateLogResult records the outcome of processing an entry. An empty
// lead leaves the back-reference unchanged.
func (s *Store) UpdateLogResult(ctx context.Context, id, status, message, lead string) error {
	update := s.builder().Update(database.TableIntegrationLogs).
		Set("status", status).
		Set("response_message", message).
		Set("updated_at", s.timestamp())
	if lead != "" {
		update.Set("lead", lead)
	}

	query, args := update.Where(entsql.EQ("id", id)).Query()
	n, err := exec(ctx, s.drv, query, args)
	if err != nil {
		return fmt.Errorf("failed to update integration log %s: %w", id, err)
	}
	if n == 0 {
		return domain.NewNotFoundError("integration log " + id)
	}
	return nil
}
