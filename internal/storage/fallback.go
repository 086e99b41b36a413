package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	kvTableKeyPrefix = "fieldbuddy_data_"
	kvMetaKey        = "fieldbuddy_meta"
)

type kvMeta struct {
	SchemaVersion int               `json:"schema_version"`
	AppliedAt     map[string]string `json:"applied_at,omitempty"`
}

// kvAdapter keeps each table as one JSON array and rewrites the whole array
// on every mutation. Ids are max(id)+1 per table.
type kvAdapter struct {
	kv KV
}

func OpenKV(path string) (Adapter, error) {
	kv, err := OpenBolt(path)
	if err != nil {
		return nil, err
	}
	return NewKVAdapter(kv), nil
}

func NewKVAdapter(kv KV) Adapter {
	return &kvAdapter{kv: kv}
}

func tableKey(table string) string {
	return kvTableKeyPrefix + table
}

func (a *kvAdapter) Name() Backend { return BackendKV }

func (a *kvAdapter) Exec(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Op == OpUpsert {
		return Result{}, fmt.Errorf("%w: %s: ON CONFLICT is not available on the key-value store", ErrUnsupportedCommand, cmd)
	}
	for _, p := range cmd.Where {
		if p.Cmp != CmpEq {
			return Result{}, fmt.Errorf("%w: %s: only equality predicates are available on the key-value store", ErrUnsupportedCommand, cmd)
		}
	}

	switch cmd.Op {
	case OpSelect:
		return a.selectRows(ctx, cmd)
	case OpInsert:
		return a.insert(ctx, cmd)
	case OpUpdate:
		return a.update(ctx, cmd)
	case OpDelete:
		return a.delete(ctx, cmd)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
}

func (a *kvAdapter) selectRows(ctx context.Context, cmd Command) (Result, error) {
	var rows []Row
	err := a.kv.View(ctx, func(b Bucket) error {
		all, err := loadTable(b, cmd.Table)
		if err != nil {
			return err
		}
		rows = filterRows(all, cmd.Where)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sortRows(rows, cmd.OrderBy)
	if cmd.Limit > 0 && len(rows) > cmd.Limit {
		rows = rows[:cmd.Limit]
	}
	return Result{Rows: rows}, nil
}

func (a *kvAdapter) insert(ctx context.Context, cmd Command) (Result, error) {
	var id int64
	err := a.kv.Update(ctx, func(b Bucket) error {
		rows, err := loadTable(b, cmd.Table)
		if err != nil {
			return err
		}
		id = nextID(rows)
		rec := make(Row, len(cmd.Fields)+1)
		for _, f := range cmd.Fields {
			rec[f.Column] = f.Value
		}
		rec["id"] = id
		return storeTable(b, cmd.Table, append(rows, rec))
	})
	if err != nil {
		return Result{}, err
	}
	return Result{InsertID: id, RowsAffected: 1}, nil
}

func (a *kvAdapter) update(ctx context.Context, cmd Command) (Result, error) {
	var affected int64
	err := a.kv.Update(ctx, func(b Bucket) error {
		rows, err := loadTable(b, cmd.Table)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if !matches(row, cmd.Where) {
				continue
			}
			for _, f := range cmd.Fields {
				row[f.Column] = f.Value
			}
			affected++
		}
		if affected == 0 {
			return nil
		}
		return storeTable(b, cmd.Table, rows)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: affected}, nil
}

func (a *kvAdapter) delete(ctx context.Context, cmd Command) (Result, error) {
	var affected int64
	err := a.kv.Update(ctx, func(b Bucket) error {
		rows, err := loadTable(b, cmd.Table)
		if err != nil {
			return err
		}
		kept := rows[:0]
		for _, row := range rows {
			if matches(row, cmd.Where) {
				affected++
				continue
			}
			kept = append(kept, row)
		}
		if affected == 0 {
			return nil
		}
		return storeTable(b, cmd.Table, kept)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: affected}, nil
}

// ApplyMigrations creates an empty collection for every table a pending
// migration declares and records the version, all in one transaction.
func (a *kvAdapter) ApplyMigrations(ctx context.Context, migrations []Migration) error {
	ordered := sortedMigrations(migrations)
	maxVersion := maxMigrationVersion(ordered)

	return a.kv.Update(ctx, func(b Bucket) error {
		meta, err := loadMeta(b)
		if err != nil {
			return err
		}
		if meta.SchemaVersion > maxVersion {
			return fmt.Errorf("%w: store=%d code=%d", ErrSchemaTooNew, meta.SchemaVersion, maxVersion)
		}

		changed := false
		for _, migration := range ordered {
			if migration.Version <= meta.SchemaVersion {
				continue
			}
			for _, table := range migration.Tables {
				if b.Get(tableKey(table.Name)) != nil {
					continue
				}
				if err := b.Put(tableKey(table.Name), []byte("[]")); err != nil {
					return fmt.Errorf("migration v%d (%s): create %s: %w", migration.Version, migration.Description, table.Name, err)
				}
			}
			if meta.AppliedAt == nil {
				meta.AppliedAt = map[string]string{}
			}
			meta.AppliedAt[strconv.Itoa(migration.Version)] = nowUTCString()
			meta.SchemaVersion = migration.Version
			changed = true
		}
		if !changed {
			return nil
		}
		return storeMeta(b, meta)
	})
}

func (a *kvAdapter) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := a.kv.View(ctx, func(b Bucket) error {
		meta, err := loadMeta(b)
		if err != nil {
			return err
		}
		version = meta.SchemaVersion
		return nil
	})
	return version, err
}

func (a *kvAdapter) Close() error {
	return a.kv.Close()
}

func loadMeta(b Bucket) (kvMeta, error) {
	var meta kvMeta
	raw := b.Get(kvMetaKey)
	if raw == nil {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return kvMeta{}, fmt.Errorf("decode %s: %w", kvMetaKey, err)
	}
	return meta, nil
}

func storeMeta(b Bucket, meta kvMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kvMetaKey, err)
	}
	return b.Put(kvMetaKey, raw)
}

func loadTable(b Bucket, table string) ([]Row, error) {
	raw := b.Get(tableKey(table))
	if raw == nil {
		return nil, fmt.Errorf("no such table: %s", table)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded []map[string]any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", table, err)
	}

	rows := make([]Row, 0, len(decoded))
	for _, rec := range decoded {
		row := make(Row, len(rec))
		for col, v := range rec {
			nv, err := normalizeValue(v)
			if err != nil {
				return nil, fmt.Errorf("decode table %s column %s: %w", table, col, err)
			}
			row[col] = nv
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func storeTable(b Bucket, table string, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", table, err)
	}
	return b.Put(tableKey(table), raw)
}

func nextID(rows []Row) int64 {
	var max int64
	for _, row := range rows {
		if id, ok := row["id"].(int64); ok && id > max {
			max = id
		}
	}
	return max + 1
}

func matches(row Row, where []Predicate) bool {
	for _, p := range where {
		if compareValues(row[p.Column], p.Value) != 0 {
			return false
		}
	}
	return true
}

func filterRows(rows []Row, where []Predicate) []Row {
	out := []Row{}
	for _, row := range rows {
		if matches(row, where) {
			out = append(out, cloneRow(row))
		}
	}
	return out
}

func sortRows(rows []Row, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compareValues(rows[i][o.Column], rows[j][o.Column])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
