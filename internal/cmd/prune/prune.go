// Package prune provides the prune command.
package prune

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moby/moby/api/types/container"
	"github.com/spf13/cobra"

	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/iostreams"
	"github.com/mike10004/containment-sub001/internal/logger"
	"github.com/mike10004/containment-sub001/pkg/dockerdriver"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// PruneOptions holds options for the prune command.
type PruneOptions struct {
	IOStreams *iostreams.IOStreams
	Engine    func(context.Context) (*whail.Engine, error)

	DryRun  bool
	Fixture string
}

// NewCmdPrune creates the prune command.
func NewCmdPrune(f *cmdutil.Factory, runF func(context.Context, *PruneOptions) error) *cobra.Command {
	opts := &PruneOptions{
		IOStreams: f.IOStreams,
		Engine:    f.Engine,
	}

	cmd := &cobra.Command{
		Use:   "prune [OPTIONS]",
		Short: "Remove leaked fixture containers",
		Long: `Removes every containment-managed container, running or stopped.

Fixture containers are normally removed when their last user closes them.
Containers left behind by a killed test process are found by their managed
label and force-removed.`,
		Example: `  # Remove all leaked fixture containers
  containment prune

  # Show what would be removed
  containment prune --dry-run

  # Remove only leaked redis fixtures
  containment prune --fixture redis`,
		Args: cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return pruneRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "List containers without removing them")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "Only remove containers of this fixture")

	return cmd
}

func pruneRun(ctx context.Context, opts *PruneOptions) error {
	ios := opts.IOStreams

	engine, err := opts.Engine(ctx)
	if err != nil {
		return fmt.Errorf("connecting to Docker: %w", err)
	}

	fixtureKey := engine.Options().LabelPrefix + "." + dockerdriver.FixtureLabel
	var filter map[string]string
	if opts.Fixture != "" {
		filter = map[string]string{fixtureKey: opts.Fixture}
	}

	items, err := engine.ListManagedContainers(ctx, filter)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(ios.ErrOut, "No fixture containers to remove.")
		return nil
	}

	if opts.DryRun {
		tp := ios.NewTablePrinter("CONTAINER", "FIXTURE", "STATUS")
		for _, c := range items {
			tp.AddRow(containerName(c), c.Labels[fixtureKey], c.Status)
		}
		return tp.Render()
	}

	var errs []error
	removed := 0
	for _, c := range items {
		name := containerName(c)
		if err := engine.ContainerRemove(ctx, c.ID, true); err != nil {
			if whail.IsNotFound(err) {
				continue
			}
			logger.Warn().Err(err).Str("container", name).Msg("failed to remove fixture container")
			errs = append(errs, err)
			continue
		}
		removed++
		fmt.Fprintf(ios.Out, "Removed: %s\n", name)
	}

	fmt.Fprintf(ios.ErrOut, "Removed %d fixture container(s)\n", removed)
	return errors.Join(errs...)
}

// containerName returns the container's primary name, falling back to a
// short ID.
func containerName(c container.Summary) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}
