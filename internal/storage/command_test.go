package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommandValidate(t *testing.T) {
	t.Parallel()

	valid := []Command{
		Select("crops"),
		Select("crops", Eq("id", 1)).OrderedBy("created_at", true).Limited(5),
		Insert("crops", Set("name", "Corn")),
		UpdateByID("crops", 1, Set("name", "Corn")),
		DeleteByID("crops", 1),
		Upsert("budgets", []string{"month", "year", "category"}, Set("month", 1), Set("year", 2024), Set("category", "seed"), Set("planned_amount", 10)),
	}
	for _, cmd := range valid {
		require.NoErrorf(t, cmd.Validate(), "command %s", cmd)
	}

	invalid := map[string]Command{
		"bad table":               Select("Crops"),
		"injected table":          Select("crops where 1=1"),
		"bad column":              Insert("crops", Set("name)", "x")),
		"bad comparator":          Select("crops", Predicate{Column: "id", Cmp: "LIKE", Value: 1}),
		"select with fields":      {Op: OpSelect, Table: "crops", Fields: []Field{Set("name", "x")}},
		"empty insert":            Insert("crops"),
		"insert with where":       {Op: OpInsert, Table: "crops", Fields: []Field{Set("name", "x")}, Where: []Predicate{ByID(1)}},
		"unfiltered update":       Update("crops", nil, Set("name", "x")),
		"unfiltered delete":       Delete("crops"),
		"upsert without conflict": Upsert("budgets", nil, Set("month", 1)),
		"upsert conflict unset":   Upsert("budgets", []string{"year"}, Set("month", 1)),
		"negative limit":          Select("crops").Limited(-1),
		"unknown op":              {Op: Op(42), Table: "crops"},
	}
	for name, cmd := range invalid {
		require.ErrorIsf(t, cmd.Validate(), ErrInvalidCommand, "case %s", name)
	}
}

func TestCommandString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "UPDATE tasks SET status, completed_at WHERE id = ?",
		UpdateByID("tasks", 1, Set("status", "done"), Set("completed_at", nil)).String())
	require.Equal(t, "SELECT expenses WHERE category = ? ORDER BY incurred_on DESC LIMIT 3",
		Select("expenses", Eq("category", "seed")).OrderedBy("incurred_on", true).Limited(3).String())
	require.Equal(t, "UPSERT ui_overrides (key, value) ON CONFLICT (key)",
		Upsert("ui_overrides", []string{"key"}, Set("key", "a"), Set("value", "b")).String())
}

func TestOrderedByDoesNotAliasReceiver(t *testing.T) {
	t.Parallel()

	base := Select("crops").OrderedBy("name", false)
	a := base.OrderedBy("id", false)
	b := base.OrderedBy("created_at", true)
	require.Len(t, base.OrderBy, 1)
	require.Equal(t, "id", a.OrderBy[1].Column)
	require.Equal(t, "created_at", b.OrderBy[1].Column)
}

type season string

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CAT", 2*3600))
	name := "Corn"
	var nilName *string

	cases := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{7, int64(7)},
		{uint16(3), int64(3)},
		{float32(1.5), 1.5},
		{true, int64(1)},
		{false, int64(0)},
		{[]byte("abc"), "abc"},
		{ts, "2024-05-01T10:30:00.000000000Z"},
		{&name, "Corn"},
		{nilName, nil},
		{json.Number("12"), int64(12)},
		{json.Number("12.5"), 12.5},
		{season("summer"), "summer"},
	}
	for _, tc := range cases {
		got, err := normalizeValue(tc.in)
		require.NoError(t, err)
		require.Equalf(t, tc.want, got, "input %#v", tc.in)
	}

	_, err := normalizeValue(uint64(1 << 63))
	require.Error(t, err)
	_, err = normalizeValue([]int{1})
	require.Error(t, err)
}

func TestCompareValuesOrdersLikeSQLite(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, compareValues(nil, nil))
	require.Equal(t, -1, compareValues(nil, int64(0)))
	require.Equal(t, -1, compareValues(int64(9), "1"))
	require.Equal(t, 0, compareValues(int64(3), 3.0))
	require.Equal(t, 1, compareValues(3.5, int64(3)))
	require.Equal(t, -1, compareValues("2024-01-09", "2024-01-10"))
}
