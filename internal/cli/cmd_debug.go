package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/debug"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Diagnostics",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "bundle [file.json]",
		Short:   "Write a diagnostics bundle without secrets",
		Example: "  fieldbuddy debug bundle /tmp/fieldbuddy-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("debug bundle accepts at most one output path")
			}
			path := "fieldbuddy-debug.json"
			if len(args) == 1 {
				path = args[0]
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				bundle := collectBundle(ctx, deps, rt)
				if err := debug.WriteBundle(path, bundle); err != nil {
					return err
				}
				out := map[string]any{"path": path, "healthy": bundle.Healthy()}
				return emit(deps, out, func(w io.Writer) error {
					for _, c := range bundle.Checks {
						if _, err := fmt.Fprintf(w, "%-10s %s %s\n", c.Name, boolToState(c.OK, "ok", "FAIL"), c.Message); err != nil {
							return err
						}
					}
					_, err := fmt.Fprintf(w, "wrote %s\n", path)
					return err
				})
			})
		},
	}
}

func collectBundle(ctx context.Context, deps commandDeps, rt *appRuntime) debug.Bundle {
	bundle := debug.NewBundle()
	bundle.Version = map[string]any{
		"version":    deps.build.Version,
		"commit":     deps.build.Commit,
		"build_time": deps.build.BuildTime,
	}
	cfg := rt.cfg
	bundle.Config = map[string]any{
		"backend":        string(cfg.Storage.Backend),
		"data_dir":       cfg.Storage.DataDir,
		"log_level":      cfg.Logging.Level,
		"log_file":       cfg.Logging.File,
		"geocoder_url":   cfg.Geocoding.BaseURL,
		"quickstats_url": cfg.USDA.QuickStatsURL,
		"usda_api_key":   boolToState(cfg.USDA.APIKey != "", "set", "unset"),
		"default_state":  cfg.USDA.DefaultState,
		"dev_bypass":     cfg.Auth.DevBypass,
	}

	st, err := storeStatus(ctx, rt)
	bundle.AddCheck("store", err)
	if err == nil {
		bundle.Store = &debug.Store{
			Backend:       string(st.Backend),
			DataDir:       st.DataDir,
			SchemaVersion: st.SchemaVersion,
			LatestVersion: st.LatestVersion,
			Counts:        recordCounts(ctx, rt),
		}
	}
	bundle.AddCheck("data dir", checkWritable(cfg.Storage.DataDir))

	var locErr error
	if cfg.Location.Latitude == nil || cfg.Location.Longitude == nil {
		locErr = errors.New("latitude and longitude are not set")
	}
	bundle.AddCheck("location", locErr)

	var keyErr error
	if cfg.USDA.APIKey == "" {
		keyErr = errors.New("no QuickStats API key, crop statistics will be empty")
	}
	bundle.AddCheck("usda", keyErr)

	if _, err := rt.svc.Auth.Current(ctx); err != nil {
		bundle.Notes = append(bundle.Notes, "session: "+err.Error())
	}
	return bundle
}

// recordCounts skips collections the acting member cannot read.
func recordCounts(ctx context.Context, rt *appRuntime) map[string]int {
	counts := map[string]int{}
	if crops, err := rt.svc.Crops.List(ctx); err == nil {
		counts["crops"] = len(crops)
	}
	if tasks, err := rt.svc.Tasks.List(ctx, ""); err == nil {
		counts["tasks"] = len(tasks)
	}
	if expenses, err := rt.svc.Expenses.List(ctx); err == nil {
		counts["expenses"] = len(expenses)
	}
	if items, err := rt.svc.Inventory.List(ctx); err == nil {
		counts["inventory"] = len(items)
	}
	if members, err := rt.svc.Team.List(ctx); err == nil {
		counts["team"] = len(members)
	}
	return counts
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
