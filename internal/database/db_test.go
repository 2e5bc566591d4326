package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/clanwarden/internal/config"
)

var allTables = []string{
	"guild_configs", "permissions", "blacklist", "audit_logs",
	"warnings", "staff_notes", "mutes",
	"members", "role_mappings", "backups",
}

func countTables(ctx context.Context, t *testing.T, db *DB) int {
	t.Helper()
	var tableCount int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name = ANY($1)
	`, pq.Array(allTables)).Scan(&tableCount)
	require.NoError(t, err)
	return tableCount
}

func TestNewDB_Success(t *testing.T) {
	ctx := context.Background()

	pgContainer, cfg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	db, err := NewDB(cfg, logger)

	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	err = db.PingContext(ctx)
	assert.NoError(t, err)

	stats := db.Stats()
	assert.Equal(t, 5, stats.MaxOpenConnections)
}

func TestNewDB_InvalidCredentials(t *testing.T) {
	ctx := context.Background()

	pgContainer, cfg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	cfg.Password = "wrong_password"

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	db, err := NewDB(cfg, logger)

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestNewDB_InvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:         "nonexistent-host-12345",
		Port:         "5432",
		User:         "testuser",
		Password:     "testpass",
		Name:         "testdb",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	db, err := NewDB(cfg, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, db)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestNewDB_URLOverridesFields(t *testing.T) {
	ctx := context.Background()

	pgContainer, cfg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	cfg.URL = "postgres://testuser:testpass@" + cfg.Host + ":" + cfg.Port + "/testdb?sslmode=disable"
	cfg.Host = "ignored-host"
	cfg.Password = "ignored"

	db, err := NewDB(cfg, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(ctx))
}

func TestDBHealth_Healthy(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	assert.NoError(t, db.Health(ctx))
}

func TestDBHealth_ClosedConnection(t *testing.T) {
	ctx := context.Background()

	pgContainer, cfg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	db, err := NewDB(cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.Close())

	err = db.Health(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestRunMigrations_Success(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, len(allTables), countTables(ctx, t, db), "all tables should be created")

	var migrationTableExists bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'schema_migrations'
		)
	`).Scan(&migrationTableExists)

	require.NoError(t, err)
	assert.True(t, migrationTableExists, "Migration tracking table should exist")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, cleanup, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	// ErrNoChange is swallowed
	err = db.RunMigrations("migrations")
	assert.NoError(t, err)

	assert.Equal(t, len(allTables), countTables(ctx, t, db))
}

func TestRunMigrations_InvalidPath(t *testing.T) {
	ctx := context.Background()

	pgContainer, cfg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	db, err := NewDB(cfg, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	err = db.RunMigrations("/nonexistent/path/to/migrations")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrate instance")
}

func TestDBErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "no rows", err: sql.ErrNoRows, target: ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), target: ErrNotFound},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, target: ErrDuplicate},
		{name: "bad conn", err: driver.ErrBadConn, target: ErrStoreUnavailable},
		{name: "conn done", err: sql.ErrConnDone, target: ErrStoreUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, target: ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(dbErr(tt.err), tt.target))
		})
	}

	assert.NoError(t, dbErr(nil))

	// other driver errors pass through untouched
	fk := &pq.Error{Code: "23503"}
	assert.Same(t, fk, dbErr(fk))
}
