package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"devlense/internal/config"
	"devlense/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		url      string
		expected Dialect
		dsn      string
	}{
		{"postgres://u:p@localhost:5432/devlense?sslmode=disable", DialectPostgres, "postgres://u:p@localhost:5432/devlense?sslmode=disable"},
		{"sqlite://data/devlense.db", DialectSQLite, "data/devlense.db"},
		{"sqlite::memory:", DialectSQLite, ":memory:"},
		{"file:test.db?cache=shared", DialectSQLite, "file:test.db?cache=shared"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d := DialectFor(tt.url)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, tt.dsn, d.DSN(tt.url))
		})
	}
}

func TestExtractDatabaseName(t *testing.T) {
	assert.Equal(t, "portfolio", extractDatabaseName("postgres://u:p@localhost:5432/portfolio?sslmode=disable"))
	assert.Equal(t, "devlense", extractDatabaseName("postgres://u:p@localhost:5432"))
	assert.Equal(t, "sqlite", extractDatabaseName("sqlite::memory:"))
}

func TestInitDBWithoutMigrations_EmptyURL(t *testing.T) {
	db, err := newTestManager().InitDBWithoutMigrations(config.DatabaseConfig{})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedURL)
	assert.Nil(t, db)
}

func TestInitDB_SQLiteAppliesMigrations(t *testing.T) {
	dm := newTestManager()
	db, err := dm.InitDB("sqlite://" + filepath.Join(t.TempDir(), "devlense.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for _, table := range []string{"users", "bug_reports", "qna"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	version, dirty, err := dm.MigrationVersion(db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// A second run finds nothing to do.
	require.NoError(t, dm.RunMigrations(db, DialectSQLite))
}

func TestInitDB_SQLiteInMemory(t *testing.T) {
	db, err := newTestManager().InitDB("sqlite::memory:")
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestResetSchema_SQLiteEmptiesTables(t *testing.T) {
	dm := newTestManager()
	db, err := dm.InitDB("sqlite://" + filepath.Join(t.TempDir(), "devlense.db"))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO users (username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4)`, "minji", "hash", now, now)
	require.NoError(t, err)

	require.NoError(t, dm.ResetSchema(db, DialectSQLite))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)

	version, dirty, err := dm.MigrationVersion(db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
