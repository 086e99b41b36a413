package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	Timeout    time.Duration
	ConfigPath string
	DataDir    string
	Backend    string
	LogLevel   string
	AsMember   int64
}

type commandDeps struct {
	globals *GlobalOptions
	out     io.Writer
	errOut  io.Writer
	build   BuildInfo
	// env overrides process environment lookups during config loading.
	env map[string]string
}

// NewRootCommand builds the fieldbuddy command tree. Command output goes to
// out; logs go to errOut.
func NewRootCommand(out, errOut io.Writer, build BuildInfo) *cobra.Command {
	return newRootCommand(commandDeps{out: out, errOut: errOut, build: build})
}

func newRootCommand(deps commandDeps) *cobra.Command {
	if deps.globals == nil {
		deps.globals = &GlobalOptions{}
	}
	g := deps.globals

	cmd := &cobra.Command{
		Use:           "fieldbuddy",
		Short:         "Farm records from the terminal",
		Long:          "Field Buddy keeps crops, tasks, expenses, inventory, budgets, documents, team permissions and weather alerts in a local store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(deps.out)
	cmd.SetErr(deps.errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&g.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVarP(&g.Quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.DurationVar(&g.Timeout, "timeout", 30*time.Second, "Deadline for the whole command")
	flags.StringVar(&g.ConfigPath, "config", "", "Config file path")
	flags.StringVar(&g.DataDir, "data-dir", "", "Directory holding the store files")
	flags.StringVar(&g.Backend, "backend", "", "Store backend: auto, sqlite or kv")
	flags.StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.Int64Var(&g.AsMember, "as-member", 0, "Act as this team member and enforce their permissions")

	cmd.AddCommand(
		newVersionCommand(deps),
		newInitCommand(deps),
		newStatusCommand(deps),
		newAuthCommand(deps),
		newProfileCommand(deps),
		newCropCommand(deps),
		newTaskCommand(deps),
		newExpenseCommand(deps),
		newBudgetCommand(deps),
		newInventoryCommand(deps),
		newDocumentCommand(deps),
		newTeamCommand(deps),
		newAlertCommand(deps),
		newReportCommand(deps),
		newOverrideCommand(deps),
		newDebugCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
