// Command fieldbuddy-man renders the fieldbuddy command reference as man
// pages or markdown for packaging.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/NatDug/Field-Buddy/internal/cli"
	"github.com/NatDug/Field-Buddy/internal/version"
)

func main() {
	var (
		outDir string
		format string
	)
	flag.StringVar(&outDir, "out", "dist/man", "directory for the generated pages")
	flag.StringVar(&format, "format", string(cli.DocFormatMan), "page format: man or markdown")
	flag.Parse()

	build := cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	}
	if err := cli.GenerateDocs(outDir, cli.DocFormat(format), build); err != nil {
		fmt.Fprintf(os.Stderr, "fieldbuddy-man: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s pages for fieldbuddy %s to %s\n", format, build.Version, outDir)
}
