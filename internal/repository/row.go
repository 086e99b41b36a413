package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(storage.TimeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

// nullable stores empty strings as NULL so unique columns accept many blanks.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

// rowReader decodes one storage row. The first conversion error sticks and
// is returned by err.
type rowReader struct {
	row storage.Row
	e   error
}

func read(row storage.Row) *rowReader {
	return &rowReader{row: row}
}

func (r *rowReader) fail(col string, err error) {
	if r.e == nil {
		r.e = fmt.Errorf("column %s: %w", col, err)
	}
}

func (r *rowReader) err() error { return r.e }

func (r *rowReader) str(col string) string {
	switch v := r.row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (r *rowReader) optInt64(col string) *int64 {
	switch v := r.row[col].(type) {
	case nil:
		return nil
	case int64:
		return &v
	case float64:
		i := int64(v)
		return &i
	case string:
		if v == "" {
			return nil
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(col, err)
			return nil
		}
		return &i
	default:
		r.fail(col, fmt.Errorf("unexpected type %T", v))
		return nil
	}
}

func (r *rowReader) int64(col string) int64 {
	if v := r.optInt64(col); v != nil {
		return *v
	}
	return 0
}

func (r *rowReader) int(col string) int {
	return int(r.int64(col))
}

func (r *rowReader) optFloat(col string) *float64 {
	switch v := r.row[col].(type) {
	case nil:
		return nil
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	case string:
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(col, err)
			return nil
		}
		return &f
	default:
		r.fail(col, fmt.Errorf("unexpected type %T", v))
		return nil
	}
}

func (r *rowReader) float(col string) float64 {
	if v := r.optFloat(col); v != nil {
		return *v
	}
	return 0
}

// boolean treats a missing value as def, matching the column defaults the
// key-value store does not apply.
func (r *rowReader) boolean(col string, def bool) bool {
	v := r.optInt64(col)
	if v == nil {
		return def
	}
	return *v != 0
}

func (r *rowReader) optTime(col string) *time.Time {
	raw := r.str(col)
	if raw == "" {
		return nil
	}
	t, err := parseTime(raw)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &t
}

func (r *rowReader) time(col string) time.Time {
	if t := r.optTime(col); t != nil {
		return *t
	}
	return time.Time{}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func joinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return strings.Join(cleaned, ",")
}

// selectOne runs cmd and returns its first row, or storage.ErrNotFound.
func selectOne(ctx context.Context, exec storage.Executor, cmd storage.Command) (storage.Row, error) {
	res, err := exec.Exec(ctx, cmd.Limited(1))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return res.Rows[0], nil
}

func selectAll[T any](ctx context.Context, exec storage.Executor, cmd storage.Command, decode func(storage.Row) (*T, error)) ([]T, error) {
	res, err := exec.Exec(ctx, cmd)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// deleteOne deletes by id and reports storage.ErrNotFound when nothing matched.
func deleteOne(ctx context.Context, exec storage.Executor, table string, id int64) error {
	res, err := exec.Exec(ctx, storage.DeleteByID(table, id))
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func updateOne(ctx context.Context, exec storage.Executor, cmd storage.Command) error {
	res, err := exec.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
