package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRenderSQL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		cmd   Command
		query string
		args  []any
	}{
		{
			name:  "select all",
			cmd:   Select("crops"),
			query: "SELECT * FROM crops",
		},
		{
			name:  "select filtered ordered limited",
			cmd:   Select("expenses", Gte("incurred_on", "2024-01-01"), Lte("incurred_on", "2024-01-31")).OrderedBy("incurred_on", true).OrderedBy("created_at", true).Limited(10),
			query: "SELECT * FROM expenses WHERE incurred_on >= ? AND incurred_on <= ? ORDER BY incurred_on DESC, created_at DESC LIMIT 10",
			args:  []any{"2024-01-01", "2024-01-31"},
		},
		{
			name:  "select null",
			cmd:   Select("tasks", Eq("completed_at", nil), Eq("status", "pending")),
			query: "SELECT * FROM tasks WHERE completed_at IS NULL AND status = ?",
			args:  []any{"pending"},
		},
		{
			name:  "insert",
			cmd:   Insert("crops", Set("name", "Corn"), Set("variety", "Sweet")),
			query: "INSERT INTO crops (name, variety) VALUES (?, ?)",
			args:  []any{"Corn", "Sweet"},
		},
		{
			name:  "update by id",
			cmd:   UpdateByID("tasks", 3, Set("status", "done"), Set("completed_at", "2024-05-01T00:00:00Z")),
			query: "UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?",
			args:  []any{"done", "2024-05-01T00:00:00Z", int64(3)},
		},
		{
			name:  "delete by id",
			cmd:   DeleteByID("crops", 9),
			query: "DELETE FROM crops WHERE id = ?",
			args:  []any{int64(9)},
		},
		{
			name:  "upsert",
			cmd:   Upsert("budgets", []string{"month", "year", "category"}, Set("month", 5), Set("year", 2024), Set("category", "seed"), Set("planned_amount", 500.0)),
			query: "INSERT INTO budgets (month, year, category, planned_amount) VALUES (?, ?, ?, ?) ON CONFLICT (month, year, category) DO UPDATE SET planned_amount = excluded.planned_amount",
			args:  []any{5, 2024, "seed", 500.0},
		},
		{
			name:  "upsert with only key columns",
			cmd:   Upsert("ui_overrides", []string{"key"}, Set("key", "tab.crops")),
			query: "INSERT INTO ui_overrides (key) VALUES (?) ON CONFLICT (key) DO NOTHING",
			args:  []any{"tab.crops"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, tc.cmd.Validate())
			query, args, err := renderSQL(tc.cmd)
			require.NoError(t, err)
			require.Equal(t, tc.query, query)
			require.Equal(t, tc.args, args)
		})
	}
}

func TestSQLiteAdapterRunsEachCommandInTransaction(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	adapter := NewSQLiteAdapter(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO crops (name, variety) VALUES (?, ?)").
		WithArgs("Corn", "Sweet").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	res, err := adapter.Exec(ctx, Insert("crops", Set("name", "Corn"), Set("variety", "Sweet")))
	require.NoError(t, err)
	require.Equal(t, int64(7), res.InsertID)
	require.Equal(t, int64(1), res.RowsAffected)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM crops WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "variety", "acreage"}).
			AddRow(int64(7), []byte("Corn"), "Sweet", nil))
	mock.ExpectCommit()

	res, err = adapter.Exec(ctx, Select("crops", ByID(7)))
	require.NoError(t, err)
	require.Equal(t, []Row{{"id": int64(7), "name": "Corn", "variety": "Sweet", "acreage": nil}}, res.Rows)
	require.Zero(t, res.InsertID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET status = ? WHERE id = ?").
		WithArgs("done", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err = adapter.Exec(ctx, UpdateByID("tasks", 2, Set("status", "done")))
	require.NoError(t, err)
	require.Zero(t, res.InsertID)
	require.Equal(t, int64(1), res.RowsAffected)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteAdapterRollsBackOnEngineError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	engineErr := errors.New("UNIQUE constraint failed: users.email")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (email, name) VALUES (?, ?)").
		WithArgs("a@example.com", "Ann").
		WillReturnError(engineErr)
	mock.ExpectRollback()

	_, err = NewSQLiteAdapter(db).Exec(context.Background(), Insert("users", Set("email", "a@example.com"), Set("name", "Ann")))
	require.ErrorIs(t, err, engineErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteAdapterReportsCommitFailure(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM crops WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err = NewSQLiteAdapter(db).Exec(context.Background(), DeleteByID("crops", 1))
	require.ErrorContains(t, err, "commit: database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}
