// Package containment is the CLI entry point.
package containment

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mike10004/containment-sub001/internal/cmd/factory"
	"github.com/mike10004/containment-sub001/internal/cmd/root"
	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/logger"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// Build-time variables injected via ldflags
var (
	Version = "dev"
	Commit  = "none"
)

const (
	exitOk    = 0
	exitError = 1
	exitUsage = 2
)

// Main is the entry point for the containment CLI.
// It initializes the Factory, creates the root command, and executes it.
func Main() int {
	defer func() { _ = logger.CloseFileWriter() }()

	f := factory.New(Version, Commit)
	defer f.CloseEngine()

	rootCmd := root.NewCmdRoot(f)
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		return printError(f, cmd, err)
	}
	return exitOk
}

// printError reports err on stderr and returns the exit code for it.
func printError(f *cmdutil.Factory, cmd *cobra.Command, err error) int {
	out := f.IOStreams.ErrOut

	if errors.Is(err, cmdutil.SilentError) {
		return exitError
	}

	var flagErr *cmdutil.FlagError
	if errors.As(err, &flagErr) {
		fmt.Fprintln(out, err)
		fmt.Fprintln(out)
		fmt.Fprint(out, cmd.UsageString())
		return exitUsage
	}

	var dockerErr *whail.DockerError
	if errors.As(err, &dockerErr) {
		fmt.Fprint(out, dockerErr.FormatUserError())
		return exitError
	}

	fmt.Fprintf(out, "Error: %s\n", err)
	if cmd != nil {
		fmt.Fprintf(out, "Run '%s --help' for more information.\n", cmd.CommandPath())
	}
	return exitError
}
