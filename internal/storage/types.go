package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("storage: not found")
	ErrSchemaTooNew       = errors.New("storage: schema version newer than code")
	ErrInvalidCommand     = errors.New("storage: invalid command")
	ErrUnsupportedCommand = errors.New("storage: unsupported command")
	ErrClosed             = errors.New("storage: closed")
)

type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendSQLite Backend = "sqlite"
	BackendKV     Backend = "kv"
)

func ParseBackend(raw string) (Backend, error) {
	switch Backend(raw) {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendSQLite, BackendKV:
		return Backend(raw), nil
	}
	return "", errors.New("storage: unknown backend " + raw)
}

// Executor runs one command. *Gateway implements it; repositories depend on it.
type Executor interface {
	Exec(ctx context.Context, cmd Command) (Result, error)
}

// Adapter is one backing store behind the Gateway.
type Adapter interface {
	Name() Backend
	Exec(ctx context.Context, cmd Command) (Result, error)
	ApplyMigrations(ctx context.Context, migrations []Migration) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}
