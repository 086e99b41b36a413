package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// TimeLayout is the fixed-width UTC form timestamps are stored in, so that
// text ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// normalizeValue maps Go values onto the four value kinds both adapters
// return: nil, int64, float64, and string.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.UTC().Format(TimeLayout), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *int64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC().Format(TimeLayout), nil
	case json.Number:
		return numberValue(x)
	case fmt.Stringer:
		return x.String(), nil
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.String:
			return rv.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Bool:
			return normalizeValue(rv.Bool())
		}
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func numberValue(n json.Number) (any, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", n, err)
	}
	return f, nil
}

func normalizeFields(fields []Field) ([]Field, error) {
	out := make([]Field, len(fields))
	for i, f := range fields {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Column, err)
		}
		out[i] = Field{Column: f.Column, Value: v}
	}
	return out, nil
}

func normalizePredicates(preds []Predicate) ([]Predicate, error) {
	out := make([]Predicate, len(preds))
	for i, p := range preds {
		v, err := normalizeValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("predicate %s: %w", p.Column, err)
		}
		out[i] = Predicate{Column: p.Column, Cmp: p.Cmp, Value: v}
	}
	return out, nil
}

// compareValues orders normalized values the way SQLite does: NULL first,
// then numbers, then text. Integers and reals compare numerically.
func compareValues(a, b any) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		fa, fb := toFloat(a), toFloat(b)
		ia, aInt := a.(int64)
		ib, bInt := b.(int64)
		if aInt && bInt {
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			}
			return 0
		}
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	default:
		sa, sb := fmt.Sprint(a), fmt.Sprint(b)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}
}

func valueRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64, float64:
		return 1
	default:
		return 2
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
