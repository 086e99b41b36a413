package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const tableUIOverrides = "ui_overrides"

type overrideRepository struct {
	exec storage.Executor
}

func (r *overrideRepository) All(ctx context.Context) (map[string]string, error) {
	res, err := r.exec.Exec(ctx, storage.Select(tableUIOverrides).OrderedBy("key", false))
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	out := make(map[string]string, len(res.Rows))
	for _, row := range res.Rows {
		rr := read(row)
		out[rr.str("key")] = rr.str("value")
	}
	return out, nil
}

func (r *overrideRepository) Get(ctx context.Context, key string) (*Override, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableUIOverrides, storage.Eq("key", key)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get override: %w", err)
	}
	rr := read(row)
	o := &Override{Key: rr.str("key"), Value: rr.str("value"), UpdatedAt: rr.time("updated_at")}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	return o, nil
}

// Set is last-write-wins. Where the store supports ON CONFLICT it is a single
// upsert; otherwise it reads the key and then inserts or updates.
func (r *overrideRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("set override: key is required")
	}
	now := fmtTime(nowUTC())

	_, err := r.exec.Exec(ctx, storage.Upsert(tableUIOverrides, []string{"key"},
		storage.Set("key", key),
		storage.Set("value", value),
		storage.Set("updated_at", now),
	))
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrUnsupportedCommand) {
		return fmt.Errorf("set override: %w", err)
	}

	_, err = r.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = r.exec.Exec(ctx, storage.Insert(tableUIOverrides,
			storage.Set("key", key),
			storage.Set("value", value),
			storage.Set("updated_at", now),
		))
	case err == nil:
		_, err = r.exec.Exec(ctx, storage.Update(tableUIOverrides, []storage.Predicate{storage.Eq("key", key)},
			storage.Set("value", value),
			storage.Set("updated_at", now),
		))
	}
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

func (r *overrideRepository) Delete(ctx context.Context, key string) error {
	res, err := r.exec.Exec(ctx, storage.Delete(tableUIOverrides, storage.Eq("key", key)))
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
