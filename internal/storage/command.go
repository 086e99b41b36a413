package storage

import (
	"fmt"
	"regexp"
	"strings"
)

type Op int

const (
	OpSelect Op = iota + 1
	OpInsert
	OpUpdate
	OpDelete
	OpUpsert
)

func (o Op) String() string {
	switch o {
	case OpSelect:
		return "SELECT"
	case OpInsert:
		return "INSERT"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	case OpUpsert:
		return "UPSERT"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

type Comparator string

const (
	CmpEq  Comparator = "="
	CmpNe  Comparator = "!="
	CmpLt  Comparator = "<"
	CmpLte Comparator = "<="
	CmpGt  Comparator = ">"
	CmpGte Comparator = ">="
)

func (c Comparator) valid() bool {
	switch c {
	case CmpEq, CmpNe, CmpLt, CmpLte, CmpGt, CmpGte:
		return true
	}
	return false
}

// Predicate is one column comparison. A command's predicates are joined with AND.
type Predicate struct {
	Column string
	Cmp    Comparator
	Value  any
}

type Field struct {
	Column string
	Value  any
}

type Order struct {
	Column string
	Desc   bool
}

// Command is the typed statement every repository sends through the Gateway.
// Build one with Select, Insert, Update, Delete, or Upsert.
type Command struct {
	Op       Op
	Table    string
	Fields   []Field
	Where    []Predicate
	OrderBy  []Order
	Limit    int
	Conflict []string
}

// Row maps column names to values normalized to nil, int64, float64, or string.
type Row map[string]any

type Result struct {
	Rows []Row
	// InsertID is the id assigned by an insert; 0 for every other command.
	InsertID     int64
	RowsAffected int64
}

func Select(table string, where ...Predicate) Command {
	return Command{Op: OpSelect, Table: table, Where: where}
}

func Insert(table string, fields ...Field) Command {
	return Command{Op: OpInsert, Table: table, Fields: fields}
}

func Update(table string, where []Predicate, fields ...Field) Command {
	return Command{Op: OpUpdate, Table: table, Where: where, Fields: fields}
}

func UpdateByID(table string, id int64, fields ...Field) Command {
	return Update(table, []Predicate{ByID(id)}, fields...)
}

func Delete(table string, where ...Predicate) Command {
	return Command{Op: OpDelete, Table: table, Where: where}
}

func DeleteByID(table string, id int64) Command {
	return Delete(table, ByID(id))
}

// Upsert inserts fields, or updates the non-conflict fields of the row that
// already holds the same values in the conflict columns.
func Upsert(table string, conflict []string, fields ...Field) Command {
	return Command{Op: OpUpsert, Table: table, Conflict: conflict, Fields: fields}
}

func Set(column string, value any) Field {
	return Field{Column: column, Value: value}
}

func Eq(column string, value any) Predicate {
	return Predicate{Column: column, Cmp: CmpEq, Value: value}
}

func Gte(column string, value any) Predicate {
	return Predicate{Column: column, Cmp: CmpGte, Value: value}
}

func Lte(column string, value any) Predicate {
	return Predicate{Column: column, Cmp: CmpLte, Value: value}
}

func ByID(id int64) Predicate {
	return Eq("id", id)
}

func (c Command) OrderedBy(column string, desc bool) Command {
	c.OrderBy = append(append([]Order(nil), c.OrderBy...), Order{Column: column, Desc: desc})
	return c
}

func (c Command) Limited(n int) Command {
	c.Limit = n
	return c
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,63}$`)

// Validate rejects commands no adapter could run.
func (c Command) Validate() error {
	if !identifierPattern.MatchString(c.Table) {
		return fmt.Errorf("%w: %s: bad table name %q", ErrInvalidCommand, c, c.Table)
	}
	for _, f := range c.Fields {
		if !identifierPattern.MatchString(f.Column) {
			return fmt.Errorf("%w: %s: bad column %q", ErrInvalidCommand, c, f.Column)
		}
	}
	for _, p := range c.Where {
		if !identifierPattern.MatchString(p.Column) {
			return fmt.Errorf("%w: %s: bad column %q", ErrInvalidCommand, c, p.Column)
		}
		if !p.Cmp.valid() {
			return fmt.Errorf("%w: %s: bad comparator %q", ErrInvalidCommand, c, p.Cmp)
		}
	}
	for _, o := range c.OrderBy {
		if !identifierPattern.MatchString(o.Column) {
			return fmt.Errorf("%w: %s: bad order column %q", ErrInvalidCommand, c, o.Column)
		}
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: %s: negative limit", ErrInvalidCommand, c)
	}

	switch c.Op {
	case OpSelect:
		if len(c.Fields) > 0 {
			return fmt.Errorf("%w: %s: select takes no fields", ErrInvalidCommand, c)
		}
	case OpInsert:
		if len(c.Fields) == 0 {
			return fmt.Errorf("%w: %s: insert needs at least one field", ErrInvalidCommand, c)
		}
		if len(c.Where) > 0 {
			return fmt.Errorf("%w: %s: insert takes no predicates", ErrInvalidCommand, c)
		}
	case OpUpdate:
		if len(c.Fields) == 0 {
			return fmt.Errorf("%w: %s: update needs at least one field", ErrInvalidCommand, c)
		}
		if len(c.Where) == 0 {
			return fmt.Errorf("%w: %s: update needs a predicate", ErrInvalidCommand, c)
		}
	case OpDelete:
		if len(c.Where) == 0 {
			return fmt.Errorf("%w: %s: delete needs a predicate", ErrInvalidCommand, c)
		}
	case OpUpsert:
		if len(c.Fields) == 0 || len(c.Conflict) == 0 {
			return fmt.Errorf("%w: %s: upsert needs fields and conflict columns", ErrInvalidCommand, c)
		}
		for _, col := range c.Conflict {
			if !identifierPattern.MatchString(col) {
				return fmt.Errorf("%w: %s: bad conflict column %q", ErrInvalidCommand, c, col)
			}
			if !hasField(c.Fields, col) {
				return fmt.Errorf("%w: %s: conflict column %q has no value", ErrInvalidCommand, c, col)
			}
		}
	default:
		return fmt.Errorf("%w: unknown op %d", ErrInvalidCommand, int(c.Op))
	}
	return nil
}

// String describes the command shape without argument values, e.g.
// "UPDATE tasks SET status, completed_at WHERE id = ?".
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Op.String())
	b.WriteByte(' ')
	b.WriteString(c.Table)
	if len(c.Fields) > 0 {
		cols := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			cols = append(cols, f.Column)
		}
		if c.Op == OpUpdate {
			b.WriteString(" SET ")
		} else {
			b.WriteString(" (")
		}
		b.WriteString(strings.Join(cols, ", "))
		if c.Op != OpUpdate {
			b.WriteByte(')')
		}
	}
	if len(c.Conflict) > 0 {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(strings.Join(c.Conflict, ", "))
		b.WriteByte(')')
	}
	if len(c.Where) > 0 {
		parts := make([]string, 0, len(c.Where))
		for _, p := range c.Where {
			parts = append(parts, p.Column+" "+string(p.Cmp)+" ?")
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}
	if len(c.OrderBy) > 0 {
		parts := make([]string, 0, len(c.OrderBy))
		for _, o := range c.OrderBy {
			if o.Desc {
				parts = append(parts, o.Column+" DESC")
			} else {
				parts = append(parts, o.Column)
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if c.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", c.Limit)
	}
	return b.String()
}

func hasField(fields []Field, column string) bool {
	for _, f := range fields {
		if f.Column == column {
			return true
		}
	}
	return false
}
