// Package main provides the placeback CLI entrypoint.
//
// Usage:
//
//	placeback <command> [subcommand] [options]
//
// Exit codes for the reconstruction commands:
//   - 0: success
//   - 1: malformed record
//   - 2: shard missing, unreadable or corrupt
//   - 3: artifact write failed
//   - 4: canceled
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/placeback/cli/cmd"
	"github.com/pithecene-io/placeback/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	commands := cmd.ReplayCommands()
	commands = append(commands,
		cmd.OrderCommand(),
		cmd.SortCommand(),
		cmd.CheckCommand(),
		cmd.StatsCommand(),
		cmd.VersionCommand(commit),
	)
	return &cli.App{
		Name:           "placeback",
		Usage:          "Reconstruct the r/place 2022 canvas from its placement history",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands:       commands,
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit prints err to w unless it carries no message and returns
// the process exit code.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N) carries no message worth printing.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
