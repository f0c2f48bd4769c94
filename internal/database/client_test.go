package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client over a migrated, file-backed SQLite database
// private to the test.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "todo.db")
	c, err := NewClient(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Migrate(""))
	return c
}

func TestNewClientRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, DriverSQLite, "")
	require.Error(t, err)

	_, err = NewClient(ctx, "mysql", "root@/todo")
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMigrateIsIdempotent(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Migrate(""))

	version, dirty, err := c.MigrationVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrateDown(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.MigrateDown(""))

	version, _, err := c.MigrationVersion("")
	require.NoError(t, err)
	assert.Zero(t, version)

	_, err = c.ColumnTypes(ctx, TodosTable, TodoColumns)
	assert.Error(t, err, "todos table should be gone")
}

func TestMigrateFromPath(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "todo.db")
	c, err := NewClient(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Migrate(filepath.Join("migrations", "sqlite3")))

	_, err = c.ColumnTypes(context.Background(), TodosTable, TodoColumns)
	require.NoError(t, err)
}

func TestColumnTypes(t *testing.T) {
	c := newTestClient(t)

	types, err := c.ColumnTypes(context.Background(), TodosTable, TodoColumns)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"id":          "INTEGER",
		"title":       "TEXT",
		"description": "TEXT",
		"completed":   "BOOLEAN",
	}, types)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := c.Transaction(ctx, func(s *Session) error {
		_, err := s.CreateTodo(ctx, "Buy milk", "2%")
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	require.NoError(t, c.Session(ctx, func(s *Session) error {
		todos, err := s.ListTodos(ctx)
		require.NoError(t, err)
		assert.Empty(t, todos)
		return nil
	}))
}

func TestTransactionCommits(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Transaction(ctx, func(s *Session) error {
		_, err := s.CreateTodo(ctx, "Buy milk", "2%")
		return err
	}))

	require.NoError(t, c.Session(ctx, func(s *Session) error {
		todos, err := s.ListTodos(ctx)
		require.NoError(t, err)
		assert.Len(t, todos, 1)
		return nil
	}))
}

func TestSessionReleasesConnectionOnPanic(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = c.Session(ctx, func(s *Session) error { panic("boom") })
	})
	assert.Panics(t, func() {
		_ = c.Transaction(ctx, func(s *Session) error { panic("boom") })
	})

	// SQLite runs on a single connection, so this would block forever if
	// either scope above leaked it.
	assert.Equal(t, 0, c.DB().Stats().InUse)
	require.NoError(t, c.Session(ctx, func(s *Session) error {
		_, err := s.ListTodos(ctx)
		return err
	}))
}

func TestSessionHonoursCancelledContext(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Session(ctx, func(s *Session) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, DriverSQLite, c.Driver())
}
