package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/NatDug/Field-Buddy/internal/cli"
	"github.com/NatDug/Field-Buddy/internal/version"
)

func main() {
	// A .env in the working directory may carry FIELDBUDDY_* settings such
	// as the USDA API key. Variables already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "fieldbuddy: load .env: %v\n", err)
		os.Exit(cli.ExitCodeUsage)
	}

	cmd := cli.NewRootCommand(os.Stdout, os.Stderr, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fieldbuddy: %v\n", err)
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			os.Exit(withExitCode.ExitCode())
		}
		os.Exit(1)
	}
}
