package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

// versionOutput adds what a bug report needs beyond the build stamp: the
// schema this binary migrates stores to, and the toolchain it was built with.
type versionOutput struct {
	BuildInfo
	Schema    int    `json:"schema_version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build, schema and toolchain versions",
		Example: "  fieldbuddy version\n" +
			"  fieldbuddy --json version",
		Args: noArgs("version"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := versionOutput{
				BuildInfo: deps.build,
				Schema:    storage.CurrentSchemaVersion(),
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return mapCommandError(emit(deps, v, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "version=%s commit=%s build_time=%s schema=%d go=%s platform=%s\n",
					v.Version, v.Commit, v.BuildTime, v.Schema, v.GoVersion, v.Platform)
				return err
			}))
		},
	}
}
