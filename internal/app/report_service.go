package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/NatDug/Field-Buddy/internal/repository"
)

type CategoryTotal struct {
	Category  string          `json:"category"`
	Spent     decimal.Decimal `json:"spent"`
	Planned   decimal.Decimal `json:"planned"`
	Remaining decimal.Decimal `json:"remaining"`
	Budgeted  bool            `json:"budgeted"`
}

type MonthlySummary struct {
	Month        int                        `json:"month"`
	Year         int                        `json:"year"`
	Categories   []CategoryTotal            `json:"categories"`
	TotalSpent   decimal.Decimal            `json:"total_spent"`
	TotalPlanned decimal.Decimal            `json:"total_planned"`
	Expenses     []repository.Expense       `json:"expenses"`
	TasksPending int                        `json:"tasks_pending"`
	TasksDone    int                        `json:"tasks_done"`
	LowStock     []repository.InventoryItem `json:"low_stock"`
}

type ReportService struct {
	expenses  repository.ExpenseRepository
	budgets   repository.BudgetRepository
	tasks     repository.TaskRepository
	inventory repository.InventoryRepository
	guard     *Guard
}

func NewReportService(
	expenses repository.ExpenseRepository,
	budgets repository.BudgetRepository,
	tasks repository.TaskRepository,
	inventory repository.InventoryRepository,
	guard *Guard,
) *ReportService {
	return &ReportService{expenses: expenses, budgets: budgets, tasks: tasks, inventory: inventory, guard: guard}
}

// Monthly totals the month's expenses per category against its budgets.
// Categories appear if they have spending or a budget.
func (s *ReportService) Monthly(ctx context.Context, month, year int) (*MonthlySummary, error) {
	if err := s.guard.Read(ctx, PageReports); err != nil {
		return nil, err
	}
	if err := validMonth(month, year); err != nil {
		return nil, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	expenses, err := expensesBetween(ctx, s.expenses, first.Format(dayLayout), last.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}
	budgets, err := s.budgets.ListForMonth(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}

	totals := map[string]*CategoryTotal{}
	entry := func(category string) *CategoryTotal {
		t, ok := totals[category]
		if !ok {
			t = &CategoryTotal{Category: category}
			totals[category] = t
		}
		return t
	}
	summary := &MonthlySummary{Month: month, Year: year, Expenses: expenses}
	for _, e := range expenses {
		amount, err := repository.Decimal(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("monthly report: expense %d: %w", e.ID, err)
		}
		t := entry(e.Category)
		t.Spent = t.Spent.Add(amount)
		summary.TotalSpent = summary.TotalSpent.Add(amount)
	}
	for _, b := range budgets {
		planned, err := repository.Decimal(b.PlannedAmount)
		if err != nil {
			return nil, fmt.Errorf("monthly report: budget %s: %w", b.Category, err)
		}
		t := entry(b.Category)
		t.Planned = planned
		t.Budgeted = true
		summary.TotalPlanned = summary.TotalPlanned.Add(planned)
	}

	summary.Categories = make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		t.Remaining = t.Planned.Sub(t.Spent)
		summary.Categories = append(summary.Categories, *t)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}
	for _, task := range tasks {
		if task.Done() {
			summary.TasksDone++
		} else {
			summary.TasksPending++
		}
	}

	summary.LowStock, err = lowStock(ctx, s.inventory)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}
	return summary, nil
}

const (
	sheetSummary  = "Summary"
	sheetExpenses = "Expenses"
	sheetLowStock = "Low stock"
)

// Export writes the month's summary as an xlsx workbook at path.
func (s *ReportService) Export(ctx context.Context, month, year int, path string) (*MonthlySummary, error) {
	summary, err := s.Monthly(ctx, month, year)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, validationf("export path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("export report: create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}
	rows := [][]any{
		{"Report", fmt.Sprintf("%04d-%02d", year, month)},
		{},
		{"Category", "Planned", "Spent", "Remaining"},
	}
	for _, c := range summary.Categories {
		rows = append(rows, []any{c.Category, money(c.Planned), money(c.Spent), money(c.Remaining)})
	}
	rows = append(rows,
		[]any{"Total", money(summary.TotalPlanned), money(summary.TotalSpent), money(summary.TotalPlanned.Sub(summary.TotalSpent))},
		[]any{},
		[]any{"Tasks pending", summary.TasksPending},
		[]any{"Tasks done", summary.TasksDone},
	)
	if err := writeRows(f, sheetSummary, rows); err != nil {
		return nil, err
	}

	rows = [][]any{{"Date", "Category", "Amount", "Currency", "Notes"}}
	for _, e := range summary.Expenses {
		rows = append(rows, []any{e.IncurredOn, e.Category, e.Amount, e.Currency, e.Notes})
	}
	if err := writeSheet(f, sheetExpenses, rows); err != nil {
		return nil, err
	}

	rows = [][]any{{"Item", "On hand", "Reorder point", "Unit"}}
	for _, item := range summary.LowStock {
		rows = append(rows, []any{item.Name, item.QuantityOnHand, item.ReorderPoint, item.Unit})
	}
	if err := writeSheet(f, sheetLowStock, rows); err != nil {
		return nil, err
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("export report: save: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return nil, fmt.Errorf("export report: chmod: %w", err)
	}
	return summary, nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export report: add sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export report: write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
