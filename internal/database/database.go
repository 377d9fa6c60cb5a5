// Package database provides database connection and migration functionality.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"devlense/internal/config"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	// Database drivers for database/sql
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// OpenTelemetry SQL instrumentation
	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Dialect identifies the SQL engine behind a connection URL.
type Dialect string

const (
	// DialectPostgres is served by lib/pq
	DialectPostgres Dialect = "postgres"
	// DialectSQLite is served by modernc.org/sqlite and is meant for local runs and tests
	DialectSQLite Dialect = "sqlite"
)

// ErrUnsupportedURL is returned for connection URLs with an unknown scheme
var ErrUnsupportedURL = errors.New("unsupported database url")

// DialectFor picks the dialect from the URL scheme. Anything that is not
// sqlite:// or file: is treated as postgres.
func DialectFor(databaseURL string) Dialect {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"), strings.HasPrefix(databaseURL, "file:"):
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

func (d Dialect) dbSystem() attribute.KeyValue {
	if d == DialectSQLite {
		return attribute.String("db.system", "sqlite")
	}
	return semconv.DBSystemPostgreSQL
}

// DSN converts the configured URL into what the driver expects.
// sqlite://data/devlense.db becomes data/devlense.db and sqlite::memory: becomes :memory:.
func (d Dialect) DSN(databaseURL string) string {
	if d != DialectSQLite {
		return databaseURL
	}
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite://"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		return rest
	}
	return databaseURL
}

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

type registeredDriver struct {
	once sync.Once
	name string
	err  error
}

var otelDrivers = map[Dialect]*registeredDriver{
	DialectPostgres: {},
	DialectSQLite:   {},
}

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// DefaultDatabaseConfig returns the default database configuration
func DefaultDatabaseConfig() config.DatabaseConfig {
	cfg := config.DatabaseConfig{
		MaxOpenConns:    config.DefaultMaxOpenConns,
		MaxIdleConns:    config.DefaultMaxIdleConns,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}

	// Check for TEST_DATABASE_URL first (for tests)
	if testURL := os.Getenv("TEST_DATABASE_URL"); testURL != "" {
		cfg.URL = testURL
	}

	return cfg
}

// InitDB initializes and returns a database connection with migrations
func (dm *Manager) InitDB(databaseURL string) (result0 *sql.DB, err error) {
	cfg := DefaultDatabaseConfig()
	cfg.URL = databaseURL
	return dm.InitDBWithConfig(cfg)
}

// InitDBWithConfig initializes and returns a database connection with migrations and custom config
func (dm *Manager) InitDBWithConfig(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	dialect := DialectFor(cfg.URL)
	_, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithConfig",
		attribute.String("db.url", contextutils.MaskDatabaseURL(cfg.URL)),
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
		dialect.dbSystem(),
		attribute.Bool("migrations.enabled", true),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
	)
	defer observability.FinishSpan(span, &err)

	db, err := dm.InitDBWithoutMigrations(cfg)
	if err != nil {
		return nil, err
	}

	if err := dm.RunMigrations(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// extractDatabaseName extracts the database name from a connection string
func extractDatabaseName(databaseURL string) string {
	if DialectFor(databaseURL) == DialectSQLite {
		return "sqlite"
	}

	if u, err := url.Parse(databaseURL); err == nil && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}

	return "devlense"
}

func otelDriverName(dialect Dialect, databaseURL string) (string, error) {
	reg := otelDrivers[dialect]
	reg.once.Do(func() {
		reg.name, reg.err = otelsql.Register(string(dialect),
			otelsql.WithDatabaseName(extractDatabaseName(databaseURL)),
			otelsql.TraceQueryWithoutArgs(),
			otelsql.WithSystem(dialect.dbSystem()),
			otelsql.TraceRowsAffected(),
		)
	})
	return reg.name, reg.err
}

// InitDBWithoutMigrations initializes and returns a database connection without running migrations
func (dm *Manager) InitDBWithoutMigrations(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	if cfg.URL == "" {
		return nil, contextutils.WrapError(ErrUnsupportedURL, "database url is empty")
	}
	dialect := DialectFor(cfg.URL)

	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithoutMigrations",
		attribute.String("database.url", contextutils.MaskDatabaseURL(cfg.URL)),
		dialect.dbSystem(),
	)
	defer observability.FinishSpan(span, &err)

	driverName, err := otelDriverName(dialect, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to register otelsql driver")
	}

	db, err := sql.Open(driverName, dialect.DSN(cfg.URL))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database connection")
	}

	if dialect == DialectSQLite {
		// One long-lived connection: sqlite serializes writers and an
		// in-memory database lives only as long as its connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.WrapError(err, "failed to ping database")
	}

	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, contextutils.WrapError(err, "failed to enable sqlite foreign keys")
		}
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"dialect":           string(dialect),
		"url":               contextutils.MaskDatabaseURL(cfg.URL),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime,
	})

	return db, nil
}

// RunMigrations applies the embedded migrations for the dialect
func (dm *Manager) RunMigrations(db *sql.DB, dialect Dialect) (err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "RunMigrations",
		dialect.dbSystem(),
		attribute.String("migration.type", "golang_migrate"),
	)
	defer observability.FinishSpan(span, &err)

	m, err := newMigrator(db, dialect)
	if err != nil {
		return err
	}
	// m is not closed: its driver owns db and would close it.

	dm.logger.Info(ctx, "Starting database migrations", map[string]interface{}{"dialect": string(dialect)})

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "migrate up failed")
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		span.SetAttributes(attribute.Int("migration.version", int(version)), attribute.Bool("migration.dirty", dirty))
	}
	dm.logger.Info(ctx, "Database migrations applied", map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	})
	return nil
}

// ResetSchema rolls every migration back and applies them again, leaving empty tables
func (dm *Manager) ResetSchema(db *sql.DB, dialect Dialect) (err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "ResetSchema", dialect.dbSystem())
	defer observability.FinishSpan(span, &err)

	m, err := newMigrator(db, dialect)
	if err != nil {
		return err
	}

	dm.logger.Warn(ctx, "Rolling back all migrations", map[string]interface{}{"dialect": string(dialect)})
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migrate down failed")
	}

	return dm.RunMigrations(db, dialect)
}

// MigrationVersion reports the schema version currently applied
func (dm *Manager) MigrationVersion(db *sql.DB, dialect Dialect) (uint, bool, error) {
	m, err := newMigrator(db, dialect)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, contextutils.WrapError(err, "failed to read migration version")
	}
	return version, dirty, nil
}

func newMigrator(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations/"+string(dialect))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open embedded migrations")
	}

	var driver migratedb.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedURL, dialect)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, nil
}
