package auth

import (
	"context"

	"github.com/jordanlanch/leadsync/pkg/models"
)

type sessionUserKey struct{}

// WithUser records the acting user on ctx
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, sessionUserKey{}, userID)
}

// UserFromContext returns the acting user. Unauthenticated callers such as
// the webhook and the scheduler act as the Administrator.
func UserFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionUserKey{}).(string); ok && id != "" {
		return id
	}
	return models.AdministratorUser
}
