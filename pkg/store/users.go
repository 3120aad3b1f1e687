package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/jordanlanch/leadsync/pkg/domain"
	"github.com/jordanlanch/leadsync/pkg/models"
)

var userColumns = []string{"id", "full_name", "enabled", "created_at", "updated_at"}

func scanUser(rows *entsql.Rows) (*models.User, error) {
	u := &models.User{}
	if err := rows.Scan(&u.ID, &u.FullName, &u.Enabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser loads a user by identifier
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	query, args := s.builder().Select(userColumns...).
		From(s.builder().Table(database.TableUsers)).
		Where(entsql.EQ("id", id)).
		Query()

	var found *models.User
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		found = u
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if found == nil {
		return nil, domain.NewNotFoundError("user " + id)
	}
	return found, nil
}

// UserExists reports whether a user record exists for id
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	_, err := s.GetUser(ctx, id)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpsertUser inserts the user or updates its name and enabled flag
func (s *Store) UpsertUser(ctx context.Context, u *models.User) error {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil && !domain.IsNotFound(err) {
		return err
	}

	now := s.timestamp()
	u.UpdatedAt = now

	if existing == nil {
		u.CreatedAt = now
		query, args := s.builder().Insert(database.TableUsers).
			Columns(userColumns...).
			Values(u.ID, u.FullName, u.Enabled, u.CreatedAt, u.UpdatedAt).
			Query()
		if _, err := exec(ctx, s.drv, query, args); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	}

	u.CreatedAt = existing.CreatedAt
	query, args := s.builder().Update(database.TableUsers).
		Set("full_name", u.FullName).
		Set("enabled", u.Enabled).
		Set("updated_at", u.UpdatedAt).
		Where(entsql.EQ("id", u.ID)).
		Query()
	if _, err := exec(ctx, s.drv, query, args); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by identifier
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	query, args := s.builder().Select(userColumns...).
		From(s.builder().Table(database.TableUsers)).
		OrderBy("id").
		Query()

	var users []*models.User
	err := queryAll(ctx, s.drv, query, args, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
