// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/jordanlanch/leadsync/pkg/database"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated client backed by a private in-memory database.
// The pool is pinned to a single connection, so callers must drain rows
// before issuing the next statement.
func Open(t testing.TB) *database.Client {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	client, err := database.Open("sqlite3", dsn, database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, client.Migrate(context.Background()))

	t.Cleanup(func() { _ = client.Close() })
	return client
}
