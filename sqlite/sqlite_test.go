package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/pipeline/internal/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}

func TestSQLiteStoreSchema(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// CreateSchema is idempotent and DropSchema clears everything.
	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))

	list, err := s.ListPipelines(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{":memory:", ":memory:?_busy_timeout=5000"},
		{"pipelines.db", "pipelines.db?_busy_timeout=5000"},
		{"file:pipelines.db?cache=shared", "file:pipelines.db?cache=shared&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, dsn(tt.path))
		})
	}
}

func TestOpenURIWithQuery(t *testing.T) {
	s, err := Open("file:dsn-query?mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.CreateSchema(context.Background()))
}
