package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

func newExpenseCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Expense records",
	}
	cmd.AddCommand(newExpenseAddCommand(deps), newExpenseListCommand(deps), newExpenseRemoveCommand(deps))
	return cmd
}

func newExpenseAddCommand(deps commandDeps) *cobra.Command {
	var (
		req    app.AddExpenseRequest
		cropID int64
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record an expense",
		Example: "  fieldbuddy expense add --category seed --amount 120.50 --date 2024-05-02",
		Args:    noArgs("expense add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.CropID, err = optionalID("crop", cropID); err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				e, err := rt.svc.Expenses.Add(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, e, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "expense %d: %s %s %s on %s\n", e.ID, e.Category, formatFloat(e.Amount), e.Currency, e.IncurredOn)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Category, "category", "", "Expense category")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Amount spent")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "ISO currency code (default USD)")
	cmd.Flags().StringVar(&req.IncurredOn, "date", "", "Date incurred (YYYY-MM-DD, default today)")
	cmd.Flags().Int64Var(&cropID, "crop", 0, "Crop id the expense belongs to")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	return cmd
}

func newExpenseListCommand(deps commandDeps) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List expenses, newest first",
		Args:  noArgs("expense ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (from == "") != (to == "") {
				return usageErrorf("--from and --to must be given together")
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				var (
					expenses []repository.Expense
					err      error
				)
				if from != "" {
					expenses, err = rt.svc.Expenses.Between(ctx, from, to)
				} else {
					expenses, err = rt.svc.Expenses.List(ctx)
				}
				if err != nil {
					return err
				}
				return emit(deps, expenses, func(w io.Writer) error {
					rows := make([][]string, 0, len(expenses))
					for _, e := range expenses {
						rows = append(rows, []string{fmt.Sprint(e.ID), e.IncurredOn, e.Category, formatFloat(e.Amount), e.Currency, formatID(e.CropID)})
					}
					return printTable(w, "ID\tDATE\tCATEGORY\tAMOUNT\tCURRENCY\tCROP", rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day of the range (YYYY-MM-DD)")
	return cmd
}

func newExpenseRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an expense",
		Args:  oneID("expense rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("expense", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Expenses.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "expense", id)
			})
		},
	}
}

func newBudgetCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Monthly budgets per category",
	}
	cmd.AddCommand(newBudgetSetCommand(deps), newBudgetListCommand(deps), newBudgetRemoveCommand(deps))
	return cmd
}

func newBudgetSetCommand(deps commandDeps) *cobra.Command {
	var req app.SetBudgetRequest
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Create or replace the planned amount for a month and category",
		Example: "  fieldbuddy budget set --month 5 --year 2024 --category seed --amount 300",
		Args:    noArgs("budget set"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				b, err := rt.svc.Budgets.Set(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, b, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "budget %d: %04d-%02d %s %s\n", b.ID, b.Year, b.Month, b.Category, formatFloat(b.PlannedAmount))
					return err
				})
			})
		},
	}
	now := time.Now()
	cmd.Flags().IntVar(&req.Month, "month", int(now.Month()), "Month (1-12)")
	cmd.Flags().IntVar(&req.Year, "year", now.Year(), "Year")
	cmd.Flags().StringVar(&req.Category, "category", "", "Expense category")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Planned amount")
	return cmd
}

func newBudgetListCommand(deps commandDeps) *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List budgets, optionally for one month",
		Args:  noArgs("budget ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				budgets, err := rt.svc.Budgets.List(ctx, month, year)
				if err != nil {
					return err
				}
				return emit(deps, budgets, func(w io.Writer) error {
					rows := make([][]string, 0, len(budgets))
					for _, b := range budgets {
						rows = append(rows, []string{fmt.Sprint(b.ID), fmt.Sprintf("%04d-%02d", b.Year, b.Month), b.Category, formatFloat(b.PlannedAmount)})
					}
					return printTable(w, "ID\tMONTH\tCATEGORY\tPLANNED", rows)
				})
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "Month (1-12), requires --year")
	cmd.Flags().IntVar(&year, "year", 0, "Year, requires --month")
	return cmd
}

func newBudgetRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a budget",
		Args:  oneID("budget rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("budget", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Budgets.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "budget", id)
			})
		},
	}
}

func newReportCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Monthly summaries",
	}
	cmd.AddCommand(newReportMonthlyCommand(deps), newReportExportCommand(deps))
	return cmd
}

func addMonthFlags(cmd *cobra.Command, month, year *int) {
	now := time.Now()
	cmd.Flags().IntVar(month, "month", int(now.Month()), "Month (1-12)")
	cmd.Flags().IntVar(year, "year", now.Year(), "Year")
}

func newReportMonthlyCommand(deps commandDeps) *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Spending against budget, task progress and low stock for one month",
		Args:  noArgs("report monthly"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				summary, err := rt.svc.Reports.Monthly(ctx, month, year)
				if err != nil {
					return err
				}
				return emit(deps, summary, func(w io.Writer) error {
					return printSummary(w, summary)
				})
			})
		},
	}
	addMonthFlags(cmd, &month, &year)
	return cmd
}

func newReportExportCommand(deps commandDeps) *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:     "export <file.xlsx>",
		Short:   "Write the monthly summary to a spreadsheet",
		Example: "  fieldbuddy report export --month 5 --year 2024 may.xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
				return usageErrorf("report export requires exactly one output path")
			}
			path := args[0]
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				summary, err := rt.svc.Reports.Export(ctx, month, year, path)
				if err != nil {
					return err
				}
				out := map[string]any{"path": path, "month": summary.Month, "year": summary.Year, "expenses": len(summary.Expenses)}
				return emit(deps, out, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "wrote %04d-%02d report to %s\n", summary.Year, summary.Month, path)
					return err
				})
			})
		},
	}
	addMonthFlags(cmd, &month, &year)
	return cmd
}

func printSummary(w io.Writer, s *app.MonthlySummary) error {
	if _, err := fmt.Fprintf(w, "%04d-%02d spent %s of %s planned, tasks %d pending / %d done\n",
		s.Year, s.Month, s.TotalSpent.StringFixed(2), s.TotalPlanned.StringFixed(2), s.TasksPending, s.TasksDone); err != nil {
		return err
	}
	rows := make([][]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		planned := "-"
		remaining := "-"
		if c.Budgeted {
			planned = c.Planned.StringFixed(2)
			remaining = c.Remaining.StringFixed(2)
		}
		rows = append(rows, []string{c.Category, c.Spent.StringFixed(2), planned, remaining})
	}
	if err := printTable(w, "CATEGORY\tSPENT\tPLANNED\tREMAINING", rows); err != nil {
		return err
	}
	for _, item := range s.LowStock {
		if _, err := fmt.Fprintf(w, "low stock: %s (%s %s, reorder at %s)\n", item.Name, formatFloat(item.QuantityOnHand), item.Unit, formatFloat(item.ReorderPoint)); err != nil {
			return err
		}
	}
	return nil
}
