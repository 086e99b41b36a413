package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	SQLiteFileName = "fieldbuddy.db"
	KVFileName     = "fieldbuddy.kv"
)

type Options struct {
	Backend Backend
	DataDir string
	Logger  *slog.Logger
}

// Gateway is the single entry point for persistence. It owns one adapter,
// chosen when it is opened and fixed until Close.
type Gateway struct {
	mu      sync.RWMutex
	adapter Adapter
	logger  *slog.Logger
	closed  bool
}

// Open selects an adapter for opts.Backend, then brings its schema up to
// date. BackendAuto prefers SQLite and falls back to the key-value file when
// the engine cannot be opened.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("open storage: empty data dir")
	}
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create data dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	adapter, err := selectAdapter(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	g := NewGateway(adapter, logger)
	if err := g.InitSchema(ctx, DefaultMigrations()); err != nil {
		_ = adapter.Close()
		return nil, err
	}
	return g, nil
}

func selectAdapter(ctx context.Context, opts Options, logger *slog.Logger) (Adapter, error) {
	sqlitePath := filepath.Join(opts.DataDir, SQLiteFileName)
	kvPath := filepath.Join(opts.DataDir, KVFileName)

	switch opts.Backend {
	case BackendSQLite:
		adapter, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		logger.Info("storage adapter selected", "backend", BackendSQLite, "path", sqlitePath)
		return adapter, nil
	case BackendKV:
		adapter, err := OpenKV(kvPath)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		logger.Info("storage adapter selected", "backend", BackendKV, "path", kvPath)
		return adapter, nil
	case BackendAuto, "":
		adapter, err := OpenSQLite(ctx, sqlitePath)
		if err == nil {
			logger.Info("storage adapter selected", "backend", BackendSQLite, "path", sqlitePath)
			return adapter, nil
		}
		logger.Warn("sqlite unavailable, using key-value fallback", "error", err, "path", kvPath)
		adapter, kvErr := OpenKV(kvPath)
		if kvErr != nil {
			return nil, fmt.Errorf("open storage: sqlite: %v; kv: %w", err, kvErr)
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("open storage: unknown backend %q", opts.Backend)
	}
}

// NewGateway wraps an already opened adapter. It does not touch the schema.
func NewGateway(adapter Adapter, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{adapter: adapter, logger: logger}
}

func (g *Gateway) Backend() Backend {
	if g == nil || g.adapter == nil {
		return ""
	}
	return g.adapter.Name()
}

// Exec validates cmd, normalizes its values, and runs it on the adapter.
func (g *Gateway) Exec(ctx context.Context, cmd Command) (Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed || g.adapter == nil {
		return Result{}, ErrClosed
	}
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fields, err := normalizeFields(cmd.Fields)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd, err)
	}
	where, err := normalizePredicates(cmd.Where)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd, err)
	}
	cmd.Fields = fields
	cmd.Where = where

	g.logger.Debug("storage exec", "backend", g.adapter.Name(), "command", cmd.String())

	res, err := g.adapter.Exec(ctx, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return res, nil
}

func (g *Gateway) InitSchema(ctx context.Context, migrations []Migration) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed || g.adapter == nil {
		return ErrClosed
	}
	if err := g.adapter.ApplyMigrations(ctx, migrations); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (g *Gateway) SchemaVersion(ctx context.Context) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed || g.adapter == nil {
		return 0, ErrClosed
	}
	return g.adapter.SchemaVersion(ctx)
}

func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.adapter == nil {
		return nil
	}
	g.closed = true
	return g.adapter.Close()
}
