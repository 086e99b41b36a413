package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

type statusOutput struct {
	Backend       storage.Backend `json:"backend"`
	DataDir       string          `json:"data_dir"`
	SchemaVersion int             `json:"schema_version"`
	LatestVersion int             `json:"latest_version"`
}

// newInitCommand opens the store, which creates the data directory and
// applies any pending migrations.
func newInitCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local store and apply migrations",
		Args:  noArgs("init"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				st, err := storeStatus(ctx, rt)
				if err != nil {
					return err
				}
				return emit(deps, st, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "initialized %s store in %s (schema v%d)\n", st.Backend, st.DataDir, st.SchemaVersion)
					return err
				})
			})
		},
	}
}

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active backend and schema version",
		Args:  noArgs("status"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				st, err := storeStatus(ctx, rt)
				if err != nil {
					return err
				}
				return emit(deps, st, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "backend=%s data_dir=%s schema=%d/%d\n", st.Backend, st.DataDir, st.SchemaVersion, st.LatestVersion)
					return err
				})
			})
		},
	}
}

func storeStatus(ctx context.Context, rt *appRuntime) (statusOutput, error) {
	version, err := rt.gateway.SchemaVersion(ctx)
	if err != nil {
		return statusOutput{}, err
	}
	return statusOutput{
		Backend:       rt.gateway.Backend(),
		DataDir:       rt.cfg.Storage.DataDir,
		SchemaVersion: version,
		LatestVersion: storage.CurrentSchemaVersion(),
	}, nil
}
