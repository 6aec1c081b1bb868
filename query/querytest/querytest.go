// Package querytest provides in-memory record stores for tests in other
// packages.
package querytest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Cedrat/watch-focus-time/query"
)

// NewDatabase opens a migrated in-memory database closed at test cleanup.
func NewDatabase(t testing.TB, opts ...query.Option) *query.Database {
	t.Helper()

	db, err := query.InitDatabase(query.DriverModernc, ":memory:", opts...)
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
