package storage

import (
	"fmt"
	"strings"
)

// renderSQL turns a validated command into one parameterized SQLite statement.
func renderSQL(cmd Command) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)

	switch cmd.Op {
	case OpSelect:
		b.WriteString("SELECT * FROM ")
		b.WriteString(cmd.Table)
		args = appendWhere(&b, cmd.Where, args)
		appendOrder(&b, cmd.OrderBy)
		if cmd.Limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", cmd.Limit)
		}
	case OpInsert, OpUpsert:
		cols := make([]string, 0, len(cmd.Fields))
		marks := make([]string, 0, len(cmd.Fields))
		for _, f := range cmd.Fields {
			cols = append(cols, f.Column)
			marks = append(marks, "?")
			args = append(args, f.Value)
		}
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", cmd.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
		if cmd.Op == OpUpsert {
			appendConflict(&b, cmd)
		}
	case OpUpdate:
		sets := make([]string, 0, len(cmd.Fields))
		for _, f := range cmd.Fields {
			sets = append(sets, f.Column+" = ?")
			args = append(args, f.Value)
		}
		fmt.Fprintf(&b, "UPDATE %s SET %s", cmd.Table, strings.Join(sets, ", "))
		args = appendWhere(&b, cmd.Where, args)
	case OpDelete:
		b.WriteString("DELETE FROM ")
		b.WriteString(cmd.Table)
		args = appendWhere(&b, cmd.Where, args)
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
	return b.String(), args, nil
}

func appendWhere(b *strings.Builder, where []Predicate, args []any) []any {
	if len(where) == 0 {
		return args
	}
	parts := make([]string, 0, len(where))
	for _, p := range where {
		if p.Value == nil {
			// "= NULL" never matches in SQL.
			switch p.Cmp {
			case CmpEq:
				parts = append(parts, p.Column+" IS NULL")
				continue
			case CmpNe:
				parts = append(parts, p.Column+" IS NOT NULL")
				continue
			}
		}
		parts = append(parts, p.Column+" "+string(p.Cmp)+" ?")
		args = append(args, p.Value)
	}
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(parts, " AND "))
	return args
}

func appendOrder(b *strings.Builder, order []Order) {
	if len(order) == 0 {
		return
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if o.Desc {
			parts = append(parts, o.Column+" DESC")
		} else {
			parts = append(parts, o.Column+" ASC")
		}
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(parts, ", "))
}

func appendConflict(b *strings.Builder, cmd Command) {
	fmt.Fprintf(b, " ON CONFLICT (%s)", strings.Join(cmd.Conflict, ", "))
	conflict := make(map[string]struct{}, len(cmd.Conflict))
	for _, c := range cmd.Conflict {
		conflict[c] = struct{}{}
	}
	var sets []string
	for _, f := range cmd.Fields {
		if _, ok := conflict[f.Column]; ok {
			continue
		}
		sets = append(sets, f.Column+" = excluded."+f.Column)
	}
	if len(sets) == 0 {
		b.WriteString(" DO NOTHING")
		return
	}
	b.WriteString(" DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
}
