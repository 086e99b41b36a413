package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesAllSequentially(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, db, DefaultMigrations()))
	require.Equal(t, CurrentSchemaVersion(), mustSchemaVersion(t, db))

	expected := append(TableNames(DefaultMigrations()), "app_meta", "schema_migrations")
	for _, table := range expected {
		require.Truef(t, tableExists(t, db, table), "expected table %s to exist", table)
	}

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	require.Equal(t, len(DefaultMigrations()), applied)
}

func TestRunMigrationsIsAtomic(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)

	migrations := []Migration{
		{
			Version:     1,
			Description: "create a",
			Tables:      []TableDef{{Name: "test_a", DDL: `CREATE TABLE test_a (id INTEGER PRIMARY KEY)`}},
		},
		{
			Version:     2,
			Description: "create b then fail",
			Tables:      []TableDef{{Name: "test_b", DDL: `CREATE TABLE test_b (id INTEGER PRIMARY KEY)`}},
			Indexes:     []string{`CREATE INDEX idx_missing ON missing_table(id)`},
		},
	}

	err := RunMigrations(context.Background(), db, migrations)
	require.Error(t, err)
	require.Contains(t, err.Error(), "migration v2 (create b then fail)")
	require.Equal(t, 1, mustSchemaVersion(t, db))
	require.True(t, tableExists(t, db, "test_a"))
	require.False(t, tableExists(t, db, "test_b"))
}

func TestMigrationsRefuseNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	for _, backend := range testBackends {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			ctx := context.Background()

			g, err := Open(ctx, Options{Backend: backend, DataDir: dir})
			require.NoError(t, err)
			future := append(DefaultMigrations(), Migration{
				Version:     CurrentSchemaVersion() + 1,
				Description: "future",
				Tables:      []TableDef{{Name: "future", DDL: `CREATE TABLE IF NOT EXISTS future (id INTEGER PRIMARY KEY)`}},
			})
			require.NoError(t, g.InitSchema(ctx, future))
			require.NoError(t, g.Close())

			_, err = Open(ctx, Options{Backend: backend, DataDir: dir})
			require.ErrorIs(t, err, ErrSchemaTooNew)
		})
	}
}

func TestKVMigrationsKeepExistingCollections(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, BackendKV)
	ctx := context.Background()

	_, err := g.Exec(ctx, Insert("crops", Set("name", "Corn")))
	require.NoError(t, err)

	extra := append(DefaultMigrations(), Migration{
		Version:     CurrentSchemaVersion() + 1,
		Description: "add fields and reuse crops",
		Tables:      []TableDef{{Name: "fields"}, {Name: "crops"}},
	})
	require.NoError(t, g.InitSchema(ctx, extra))

	require.Len(t, mustRows(t, g, Select("crops")), 1)
	require.Empty(t, mustRows(t, g, Select("fields")))
	version, err := g.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion()+1, version)
}

func TestTableNamesFollowMigrationOrder(t *testing.T) {
	t.Parallel()

	names := TableNames(DefaultMigrations())
	require.Equal(t, "users", names[0])
	require.Equal(t, "ui_overrides", names[len(names)-1])
	require.Contains(t, names, "inventory_adjustments")
	require.Contains(t, names, "weather_thresholds")
}

func openRawTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), SQLiteFileName))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func mustSchemaVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var version int
	err := db.QueryRow(`SELECT value FROM app_meta WHERE key = 'schema_version'`).Scan(&version)
	require.NoError(t, err)
	return version
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	require.NoError(t, err)
	return count == 1
}
