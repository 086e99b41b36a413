package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/config"
	"github.com/NatDug/Field-Buddy/internal/geo"
	fblog "github.com/NatDug/Field-Buddy/internal/log"
	"github.com/NatDug/Field-Buddy/internal/notify"
	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/storage"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

var loadConfigFn = config.Load

type appRuntime struct {
	cfg     config.Config
	gateway *storage.Gateway
	svc     *app.Services
	logger  *slog.Logger
}

// withApp opens the store and wires the services for one command. The store
// is closed when fn returns.
func withApp(cmdCtx context.Context, deps commandDeps, fn func(context.Context, *appRuntime) error) error {
	ctx := cmdCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.globals.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.globals.Timeout)
		defer cancel()
	}

	cfg, err := loadConfigFn(loadOptions(deps))
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}

	logger, logCloser, err := fblog.New(fblog.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		Stderr:    deps.errOut,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("%w: %v", config.ErrInvalidConfig, err))
	}
	defer logCloser.Close()

	gateway, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		DataDir: cfg.Storage.DataDir,
		Logger:  logger,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("open store: %w", err))
	}
	defer gateway.Close()

	rt := &appRuntime{
		cfg:     cfg,
		gateway: gateway,
		svc:     app.New(buildDeps(cfg, gateway, logger)),
		logger:  logger,
	}
	if deps.globals.AsMember > 0 {
		ctx = app.WithActor(ctx, deps.globals.AsMember)
	}
	return mapCommandError(fn(ctx, rt))
}

func loadOptions(deps commandDeps) config.LoadOptions {
	g := deps.globals
	opts := config.LoadOptions{
		ConfigPath: strings.TrimSpace(g.ConfigPath),
		Env:        deps.env,
	}
	if v := strings.TrimSpace(g.Backend); v != "" {
		opts.Flags.Backend = &v
	}
	if v := strings.TrimSpace(g.DataDir); v != "" {
		opts.Flags.DataDir = &v
	}
	if v := strings.TrimSpace(g.LogLevel); v != "" {
		opts.Flags.LogLevel = &v
	}
	return opts
}

func buildDeps(cfg config.Config, gateway *storage.Gateway, logger *slog.Logger) app.Deps {
	quickStats := usda.NewQuickStatsClient(cfg.USDA.QuickStatsURL, cfg.USDA.APIKey, cfg.USDA.Timeout, logger)
	return app.Deps{
		Repos:      repository.New(gateway),
		Locator:    geo.StaticLocator{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude},
		Geocoder:   geo.NewNominatimClient(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout),
		Classifier: usda.NewStrataClassifier(usda.MockStrataMatcher{}, quickStats, cfg.USDA.DefaultState),
		Notifier:   notify.NewLogScheduler(logger),
		Sessions:   app.NewFileSessionStore(filepath.Join(cfg.Storage.DataDir, app.SessionFileName)),
		DevBypass:  cfg.Auth.DevBypass,
		Logger:     logger,
	}
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// emit prints value as JSON under --json, nothing under --quiet, and the
// text rendering otherwise.
func emit(deps commandDeps, value any, text func(io.Writer) error) error {
	if deps.globals.JSON {
		return printJSON(deps.out, value)
	}
	if deps.globals.Quiet {
		return nil
	}
	return text(deps.out)
}

func printTable(w io.Writer, header string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, header); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func optionalID(kind string, raw int64) (*int64, error) {
	if raw < 0 {
		return nil, usageErrorf("invalid %s id %d", kind, raw)
	}
	if raw == 0 {
		return nil, nil
	}
	return &raw, nil
}

func formatID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boolToState(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func noArgs(name string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != 0 {
			return usageErrorf("%s does not accept positional arguments", name)
		}
		return nil
	}
}

func oneID(name string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usageErrorf("%s requires exactly one id", name)
		}
		return nil
	}
}
