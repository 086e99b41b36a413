package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOff = `PRAGMA foreign_keys=OFF`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

type sqliteAdapter struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database file at path, applies pragmas, and pings it.
func OpenSQLite(ctx context.Context, path string) (Adapter, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open sqlite: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps per-connection pragmas in force for every command.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite: ping: %w", err)
	}
	if err := configureSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteAdapter{db: db, path: path}, nil
}

// NewSQLiteAdapter wraps an open handle without configuring it.
func NewSQLiteAdapter(db *sql.DB) Adapter {
	return &sqliteAdapter{db: db}
}

func (a *sqliteAdapter) Name() Backend { return BackendSQLite }

func (a *sqliteAdapter) Exec(ctx context.Context, cmd Command) (Result, error) {
	query, args, err := renderSQL(cmd)
	if err != nil {
		return Result{}, err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}

	var res Result
	if cmd.Op == OpSelect {
		res.Rows, err = queryRows(ctx, tx, query, args)
	} else {
		res, err = execStatement(ctx, tx, cmd.Op, query, args)
	}
	if err != nil {
		_ = tx.Rollback()
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func queryRows(ctx context.Context, tx *sql.Tx, query string, args []any) ([]Row, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			v, err := normalizeValue(values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func execStatement(ctx context.Context, tx *sql.Tx, op Op, query string, args []any) (Result, error) {
	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if res.RowsAffected, err = r.RowsAffected(); err != nil {
		return Result{}, fmt.Errorf("rows affected: %w", err)
	}
	if op == OpInsert {
		if res.InsertID, err = r.LastInsertId(); err != nil {
			return Result{}, fmt.Errorf("last insert id: %w", err)
		}
	}
	return res, nil
}

func (a *sqliteAdapter) ApplyMigrations(ctx context.Context, migrations []Migration) error {
	return RunMigrations(ctx, a.db, migrations)
}

func (a *sqliteAdapter) SchemaVersion(ctx context.Context) (int, error) {
	return readSchemaVersion(ctx, a.db)
}

func (a *sqliteAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOff, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	for _, p := range []string{path, path + "-wal"} {
		if err := os.Chmod(p, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set %s permissions: %w", filepath.Base(p), err)
		}
	}
	return nil
}
