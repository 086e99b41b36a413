package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

func newAlertCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Weather thresholds, readings and triggered alerts",
	}
	threshold := &cobra.Command{
		Use:     "threshold",
		Aliases: []string{"th"},
		Short:   "Manage alert thresholds",
	}
	threshold.AddCommand(
		newThresholdAddCommand(deps),
		newThresholdListCommand(deps),
		newThresholdActiveCommand(deps, "enable", true),
		newThresholdActiveCommand(deps, "disable", false),
		newThresholdRemoveCommand(deps),
	)
	cmd.AddCommand(threshold, newAlertCheckCommand(deps), newAlertListCommand(deps), newAlertReadingsCommand(deps))
	return cmd
}

func newThresholdAddCommand(deps commandDeps) *cobra.Command {
	var (
		req    app.AddThresholdRequest
		cropID int64
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a threshold",
		Example: "  fieldbuddy alert threshold add --metric temperature --op '>' --value 35 --message \"Heat stress\"",
		Args:    noArgs("alert threshold add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.CropID, err = optionalID("crop", cropID); err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				th, err := rt.svc.Alerts.AddThreshold(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, th, func(w io.Writer) error {
					return printThresholds(w, []repository.Threshold{*th})
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Metric, "metric", "", "Metric name, e.g. temperature or rainfall")
	cmd.Flags().StringVar(&req.Operator, "op", "", "Comparison: "+strings.Join(app.Operators, " "))
	cmd.Flags().Float64Var(&req.Value, "value", 0, "Limit to compare readings against")
	cmd.Flags().StringVar(&req.Message, "message", "", "Message recorded when the threshold fires")
	cmd.Flags().Int64Var(&cropID, "crop", 0, "Only readings for this crop")
	return cmd
}

func newThresholdListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List thresholds",
		Args:  noArgs("alert threshold ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				ths, err := rt.svc.Alerts.Thresholds(ctx)
				if err != nil {
					return err
				}
				return emit(deps, ths, func(w io.Writer) error {
					return printThresholds(w, ths)
				})
			})
		},
	}
}

func newThresholdActiveCommand(deps commandDeps, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a threshold",
		Args:  oneID("alert threshold " + use),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("threshold", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Alerts.SetActive(ctx, id, active); err != nil {
					return err
				}
				return emit(deps, map[string]any{"id": id, "is_active": active}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "threshold %d %sd\n", id, use)
					return err
				})
			})
		},
	}
}

func newThresholdRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a threshold",
		Args:  oneID("alert threshold rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("threshold", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Alerts.DeleteThreshold(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "threshold", id)
			})
		},
	}
}

// newAlertCheckCommand records one reading and evaluates it against the
// active thresholds.
func newAlertCheckCommand(deps commandDeps) *cobra.Command {
	var (
		reading app.Reading
		cropID  int64
	)
	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Record a reading and fire any matching thresholds",
		Example: "  fieldbuddy alert check --metric temperature --value 37.2 --unit C",
		Args:    noArgs("alert check"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("value") {
				return usageErrorf("alert check requires --value")
			}
			var err error
			if reading.CropID, err = optionalID("crop", cropID); err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				fired, err := rt.svc.Alerts.Evaluate(ctx, reading)
				if err != nil {
					return err
				}
				return emit(deps, fired, func(w io.Writer) error {
					if len(fired) == 0 {
						_, err := fmt.Fprintln(w, "no thresholds crossed")
						return err
					}
					return printAlerts(w, fired)
				})
			})
		},
	}
	cmd.Flags().StringVar(&reading.Metric, "metric", "", "Metric name")
	cmd.Flags().Float64Var(&reading.Value, "value", 0, "Observed value")
	cmd.Flags().StringVar(&reading.Unit, "unit", "", "Unit of the reading")
	cmd.Flags().Int64Var(&cropID, "crop", 0, "Crop the reading belongs to")
	return cmd
}

func newAlertListCommand(deps commandDeps) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List triggered alerts, newest first",
		Args:  noArgs("alert ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				alerts, err := rt.svc.Alerts.Alerts(ctx, limit)
				if err != nil {
					return err
				}
				return emit(deps, alerts, func(w io.Writer) error {
					return printAlerts(w, alerts)
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum alerts to show")
	return cmd
}

func newAlertReadingsCommand(deps commandDeps) *cobra.Command {
	var (
		metric string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "List recorded readings for a metric",
		Args:  noArgs("alert readings"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				readings, err := rt.svc.Alerts.Readings(ctx, metric, limit)
				if err != nil {
					return err
				}
				return emit(deps, readings, func(w io.Writer) error {
					rows := make([][]string, 0, len(readings))
					for _, r := range readings {
						rows = append(rows, []string{r.RecordedAt.Local().Format("2006-01-02 15:04"), r.Name, formatFloat(r.Value), orDash(r.Unit), formatID(r.CropID)})
					}
					return printTable(w, "WHEN\tMETRIC\tVALUE\tUNIT\tCROP", rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "", "Metric name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum readings to show")
	return cmd
}

func printThresholds(w io.Writer, ths []repository.Threshold) error {
	rows := make([][]string, 0, len(ths))
	for _, th := range ths {
		rows = append(rows, []string{
			fmt.Sprint(th.ID), th.Metric, th.Operator, formatFloat(th.Value),
			formatID(th.CropID), boolToState(th.Active, "on", "off"), orDash(th.Message),
		})
	}
	return printTable(w, "ID\tMETRIC\tOP\tVALUE\tCROP\tACTIVE\tMESSAGE", rows)
}

func printAlerts(w io.Writer, alerts []repository.Alert) error {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{a.TriggeredAt.Local().Format("2006-01-02 15:04"), a.Metric, formatFloat(a.Observed), formatID(a.ThresholdID), orDash(a.Message)})
	}
	return printTable(w, "WHEN\tMETRIC\tOBSERVED\tTHRESHOLD\tMESSAGE", rows)
}
