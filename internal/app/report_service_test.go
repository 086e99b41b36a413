package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedMonth(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()

	for _, e := range []AddExpenseRequest{
		{Category: "seed", Amount: 0.1, IncurredOn: "2024-05-02"},
		{Category: "seed", Amount: 0.2, IncurredOn: "2024-05-20"},
		{Category: "fuel", Amount: 80, IncurredOn: "2024-05-31"},
		{Category: "fuel", Amount: 999, IncurredOn: "2024-06-01"},
	} {
		_, err := env.svc.Expenses.Add(ctx, e)
		require.NoError(t, err)
	}
	_, err := env.svc.Budgets.Set(ctx, SetBudgetRequest{Month: 5, Year: 2024, Category: "seed", Amount: 50})
	require.NoError(t, err)
	_, err = env.svc.Budgets.Set(ctx, SetBudgetRequest{Month: 5, Year: 2024, Category: "labor", Amount: 200})
	require.NoError(t, err)

	task, err := env.svc.Tasks.Add(ctx, AddTaskRequest{Title: "Plant"})
	require.NoError(t, err)
	_, err = env.svc.Tasks.SetDone(ctx, task.ID, true)
	require.NoError(t, err)
	_, err = env.svc.Tasks.Add(ctx, AddTaskRequest{Title: "Spray"})
	require.NoError(t, err)

	_, err = env.svc.Inventory.Add(ctx, AddInventoryRequest{Name: "Diesel", Quantity: 2, ReorderPoint: 5})
	require.NoError(t, err)
}

func TestReportServiceMonthly(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, env *testEnv) {
		seedMonth(t, env)

		r, err := env.svc.Reports.Monthly(context.Background(), 5, 2024)
		require.NoError(t, err)
		require.Len(t, r.Expenses, 3)
		require.Equal(t, "80.3", r.TotalSpent.String())
		require.Equal(t, "250", r.TotalPlanned.String())

		require.Len(t, r.Categories, 3)
		require.Equal(t, "fuel", r.Categories[0].Category)
		require.False(t, r.Categories[0].Budgeted)
		require.Equal(t, "-80", r.Categories[0].Remaining.String())
		require.Equal(t, "labor", r.Categories[1].Category)
		require.Equal(t, "200", r.Categories[1].Remaining.String())
		require.Equal(t, "seed", r.Categories[2].Category)
		require.Equal(t, "0.3", r.Categories[2].Spent.String())
		require.Equal(t, "49.7", r.Categories[2].Remaining.String())

		require.Equal(t, 1, r.TasksDone)
		require.Equal(t, 1, r.TasksPending)
		require.Len(t, r.LowStock, 1)

		_, err = env.svc.Reports.Monthly(context.Background(), 0, 2024)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestReportServiceExportWritesWorkbook(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "sqlite")
	seedMonth(t, env)

	path := filepath.Join(t.TempDir(), "reports", "2024-05.xlsx")
	_, err := env.svc.Reports.Export(context.Background(), 5, 2024, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{sheetSummary, sheetExpenses, sheetLowStock}, f.GetSheetList())

	head, err := f.GetCellValue(sheetSummary, "B1")
	require.NoError(t, err)
	require.Equal(t, "2024-05", head)

	rows, err := f.GetRows(sheetExpenses)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	item, err := f.GetCellValue(sheetLowStock, "A2")
	require.NoError(t, err)
	require.Equal(t, "Diesel", item)
}
