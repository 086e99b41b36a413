package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const (
	schemaVersionMetaKey = "schema_version"
)

// TableDef is one table the schema owns. DDL is only run by the SQLite
// adapter; the key-value adapter only needs the name.
type TableDef struct {
	Name string
	DDL  string
}

type Migration struct {
	Version     int
	Description string
	Tables      []TableDef
	Indexes     []string
}

// Foreign-key columns below are declarative only. The SQLite adapter runs
// with foreign_keys=OFF and the key-value adapter never checks them.
var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create core farm tables",
		Tables: []TableDef{
			{Name: "users", DDL: `CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY NOT NULL,
				email TEXT UNIQUE,
				phone TEXT UNIQUE,
				name TEXT NOT NULL,
				provider TEXT,
				provider_id TEXT,
				avatar_url TEXT,
				is_active INTEGER DEFAULT 1,
				created_at TEXT,
				updated_at TEXT
			)`},
			{Name: "profile", DDL: `CREATE TABLE IF NOT EXISTS profile (
				id INTEGER PRIMARY KEY NOT NULL,
				user_id INTEGER,
				name TEXT,
				farm_name TEXT,
				location TEXT,
				latitude REAL,
				longitude REAL,
				state TEXT,
				county TEXT,
				zip_code TEXT,
				address TEXT,
				farm_type TEXT,
				efficiency_score REAL,
				usda_strata_id TEXT,
				created_at TEXT,
				updated_at TEXT,
				FOREIGN KEY (user_id) REFERENCES users(id)
			)`},
			{Name: "crops", DDL: `CREATE TABLE IF NOT EXISTS crops (
				id INTEGER PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				variety TEXT,
				acreage REAL,
				season TEXT,
				notes TEXT,
				created_at TEXT
			)`},
			{Name: "tasks", DDL: `CREATE TABLE IF NOT EXISTS tasks (
				id INTEGER PRIMARY KEY NOT NULL,
				crop_id INTEGER,
				title TEXT NOT NULL,
				description TEXT,
				status TEXT DEFAULT 'pending',
				assigned_to TEXT,
				scheduled_for TEXT,
				completed_at TEXT,
				created_at TEXT,
				FOREIGN KEY (crop_id) REFERENCES crops(id)
			)`},
			{Name: "expenses", DDL: `CREATE TABLE IF NOT EXISTS expenses (
				id INTEGER PRIMARY KEY NOT NULL,
				crop_id INTEGER,
				category TEXT,
				amount REAL NOT NULL,
				currency TEXT DEFAULT 'USD',
				incurred_on TEXT,
				notes TEXT,
				created_at TEXT,
				FOREIGN KEY (crop_id) REFERENCES crops(id)
			)`},
		},
	},
	{
		Version:     2,
		Description: "add inventory ledger, budgets, and documents",
		Tables: []TableDef{
			{Name: "inventory_items", DDL: `CREATE TABLE IF NOT EXISTS inventory_items (
				id INTEGER PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				type TEXT,
				unit TEXT,
				quantity_on_hand REAL NOT NULL DEFAULT 0,
				reorder_point REAL NOT NULL DEFAULT 0,
				created_at TEXT,
				updated_at TEXT
			)`},
			{Name: "inventory_adjustments", DDL: `CREATE TABLE IF NOT EXISTS inventory_adjustments (
				id INTEGER PRIMARY KEY NOT NULL,
				item_id INTEGER NOT NULL,
				delta REAL NOT NULL,
				reason TEXT,
				created_at TEXT,
				FOREIGN KEY (item_id) REFERENCES inventory_items(id)
			)`},
			{Name: "budgets", DDL: `CREATE TABLE IF NOT EXISTS budgets (
				id INTEGER PRIMARY KEY NOT NULL,
				month INTEGER NOT NULL,
				year INTEGER NOT NULL,
				category TEXT NOT NULL,
				planned_amount REAL NOT NULL,
				created_at TEXT,
				updated_at TEXT,
				UNIQUE (month, year, category)
			)`},
			{Name: "documents", DDL: `CREATE TABLE IF NOT EXISTS documents (
				id INTEGER PRIMARY KEY NOT NULL,
				title TEXT NOT NULL,
				type TEXT,
				tags TEXT,
				file_uri TEXT,
				created_at TEXT
			)`},
		},
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_inventory_adjustments_item_id ON inventory_adjustments(item_id)`,
		},
	},
	{
		Version:     3,
		Description: "add team members and page permissions",
		Tables: []TableDef{
			{Name: "team_members", DDL: `CREATE TABLE IF NOT EXISTS team_members (
				id INTEGER PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				email TEXT,
				phone TEXT,
				role TEXT DEFAULT 'worker',
				created_at TEXT
			)`},
			{Name: "permissions", DDL: `CREATE TABLE IF NOT EXISTS permissions (
				id INTEGER PRIMARY KEY NOT NULL,
				member_id INTEGER NOT NULL,
				page TEXT NOT NULL,
				can_read INTEGER NOT NULL DEFAULT 1,
				can_write INTEGER NOT NULL DEFAULT 0,
				data_scope TEXT DEFAULT 'farm-wide',
				updated_at TEXT,
				UNIQUE (member_id, page),
				FOREIGN KEY (member_id) REFERENCES team_members(id)
			)`},
		},
	},
	{
		Version:     4,
		Description: "add weather thresholds, alert log, and metrics",
		Tables: []TableDef{
			{Name: "weather_thresholds", DDL: `CREATE TABLE IF NOT EXISTS weather_thresholds (
				id INTEGER PRIMARY KEY NOT NULL,
				crop_id INTEGER,
				metric TEXT NOT NULL,
				operator TEXT NOT NULL,
				value REAL NOT NULL,
				message TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT,
				FOREIGN KEY (crop_id) REFERENCES crops(id)
			)`},
			{Name: "weather_alerts", DDL: `CREATE TABLE IF NOT EXISTS weather_alerts (
				id INTEGER PRIMARY KEY NOT NULL,
				threshold_id INTEGER,
				metric TEXT NOT NULL,
				observed REAL NOT NULL,
				message TEXT,
				triggered_at TEXT,
				FOREIGN KEY (threshold_id) REFERENCES weather_thresholds(id)
			)`},
			{Name: "metrics", DDL: `CREATE TABLE IF NOT EXISTS metrics (
				id INTEGER PRIMARY KEY NOT NULL,
				crop_id INTEGER,
				name TEXT NOT NULL,
				value REAL NOT NULL,
				unit TEXT,
				recorded_at TEXT,
				FOREIGN KEY (crop_id) REFERENCES crops(id)
			)`},
		},
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_metrics_name_recorded_at ON metrics(name, recorded_at)`,
		},
	},
	{
		Version:     5,
		Description: "add sync scaffolding and ui overrides",
		Tables: []TableDef{
			{Name: "sync_queue", DDL: `CREATE TABLE IF NOT EXISTS sync_queue (
				id INTEGER PRIMARY KEY NOT NULL,
				table_name TEXT NOT NULL,
				row_id INTEGER,
				operation TEXT NOT NULL,
				payload TEXT,
				created_at TEXT
			)`},
			{Name: "tombstones", DDL: `CREATE TABLE IF NOT EXISTS tombstones (
				id INTEGER PRIMARY KEY NOT NULL,
				table_name TEXT NOT NULL,
				row_id INTEGER NOT NULL,
				deleted_at TEXT
			)`},
			{Name: "ui_overrides", DDL: `CREATE TABLE IF NOT EXISTS ui_overrides (
				key TEXT PRIMARY KEY NOT NULL,
				value TEXT NOT NULL,
				updated_at TEXT
			)`},
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// TableNames lists every table the migrations create, in creation order.
func TableNames(migrations []Migration) []string {
	var names []string
	for _, m := range sortedMigrations(migrations) {
		for _, t := range m.Tables {
			names = append(names, t.Name)
		}
	}
	return names
}

// RunMigrations applies every pending migration to a SQLite database, one
// transaction per version.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationTables(ctx, db); err != nil {
		return err
	}

	ordered := sortedMigrations(migrations)

	current, err := readSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}

		if err := applySQLMigration(ctx, tx, migration); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO schema_migrations(version, applied_at) VALUES (?, ?)`, migration.Version, nowUTCString()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema migration v%d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO app_meta(key, value) VALUES(?, ?)`, schemaVersionMetaKey, strconv.Itoa(migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update schema version v%d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
	}

	return nil
}

func applySQLMigration(ctx context.Context, tx *sql.Tx, migration Migration) error {
	for _, table := range migration.Tables {
		if table.DDL == "" {
			return fmt.Errorf("table %s has no DDL", table.Name)
		}
		if _, err := tx.ExecContext(ctx, table.DDL); err != nil {
			return fmt.Errorf("create %s: %w", table.Name, err)
		}
	}
	for _, stmt := range migration.Indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func ensureMigrationTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS app_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`,
		`INSERT OR IGNORE INTO app_meta(key, value) VALUES('` + schemaVersionMetaKey + `', '0')`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure migration tables: %w", err)
		}
	}
	return nil
}

func readSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var versionStr string
	if err := db.QueryRowContext(ctx, `SELECT value FROM app_meta WHERE key = ?`, schemaVersionMetaKey).Scan(&versionStr); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", versionStr, err)
	}
	return version, nil
}

func sortedMigrations(migrations []Migration) []Migration {
	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	return ordered
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}

func nowUTCString() string {
	return time.Now().UTC().Format(TimeLayout)
}
