// Package database provides the SQL client and data access for the todo-api.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

// ErrUnsupportedDriver is returned by NewClient for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

//go:embed migrations
var migrationsFS embed.FS

// Client wraps the database connection pool and hands out scoped sessions.
type Client struct {
	db     *sql.DB
	driver string
}

// NewClient opens a pool for driver and verifies it with a ping.
func NewClient(ctx context.Context, driver, databaseURL string) (*Client, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	switch driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, driver: driver}, nil
}

// DB returns the underlying *sql.DB.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Driver returns the database/sql driver name the client was opened with.
func (c *Client) Driver() string {
	return c.driver
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks that the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// =============================================================================
// MIGRATIONS
// =============================================================================

// dialect names the migration set and golang-migrate driver for c.
func (c *Client) dialect() string {
	if c.driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// Migrate applies all pending up migrations. An empty migrationsPath selects
// the migrations embedded in the binary.
func (c *Client) Migrate(migrationsPath string) error {
	m, err := c.migrator(migrationsPath)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateDown reverts all applied migrations.
func (c *Client) MigrateDown(migrationsPath string) error {
	m, err := c.migrator(migrationsPath)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration rollback failed: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version. Version 0 with a nil
// error means no migration has been applied yet.
func (c *Client) MigrationVersion(migrationsPath string) (uint, bool, error) {
	m, err := c.migrator(migrationsPath)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

// The migrator is not closed: closing it would close c.db as well.
func (c *Client) migrator(migrationsPath string) (*migrate.Migrate, error) {
	var (
		driver migratedb.Driver
		err    error
	)
	switch c.dialect() {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(c.db, &sqlite3.Config{})
	default:
		driver, err = postgres.WithInstance(c.db, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	var m *migrate.Migrate
	if migrationsPath != "" {
		m, err = migrate.NewWithDatabaseInstance(
			"file://"+strings.TrimPrefix(migrationsPath, "file://"),
			c.dialect(),
			driver,
		)
	} else {
		src, srcErr := iofs.New(migrationsFS, "migrations/"+c.dialect())
		if srcErr != nil {
			return nil, fmt.Errorf("failed to load embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, c.dialect(), driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// =============================================================================
// SCOPED SESSIONS
// =============================================================================

// querier is implemented by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session is a storage handle whose lifetime is bounded by a single
// Client.Session or Client.Transaction call. It must not be retained.
type Session struct {
	q querier
}

// Session acquires a dedicated connection, runs fn with it and releases the
// connection on every exit path, including panics.
func (c *Client) Session(ctx context.Context, fn func(s *Session) error) error {
	return c.withConn(ctx, func(conn *sql.Conn) error {
		return fn(&Session{q: conn})
	})
}

// Transaction runs fn inside a transaction on a scoped connection. The
// transaction commits when fn returns nil and rolls back otherwise.
func (c *Client) Transaction(ctx context.Context, fn func(s *Session) error) error {
	return c.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()

		if err := fn(&Session{q: tx}); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (c *Client) withConn(ctx context.Context, fn func(conn *sql.Conn) error) (err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release connection: %w", cerr)
		}
	}()

	return fn(conn)
}

// ColumnTypes reports the upper-cased database type name of each column of
// table. Identifiers are interpolated and must come from trusted code.
func (c *Client) ColumnTypes(ctx context.Context, table string, columns []string) (map[string]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", strings.Join(columns, ", "), table)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types of %s: %w", table, err)
	}

	result := make(map[string]string, len(types))
	for _, ct := range types {
		result[ct.Name()] = strings.ToUpper(ct.DatabaseTypeName())
	}
	return result, rows.Err()
}
