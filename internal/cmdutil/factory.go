// Package cmdutil holds the dependency container and helpers shared by CLI
// commands.
package cmdutil

import (
	"context"

	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/internal/iostreams"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// Factory provides shared dependencies for CLI commands.
// It is a dependency injection container: the struct defines what
// dependencies exist, while internal/cmd/factory wires the real
// implementations.
//
// Closure fields use lazy initialization. Commands extract only the fields
// they need into per-command Options structs.
type Factory struct {
	// Configuration from flags (set before command execution)
	WorkDir string
	Debug   bool

	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	IOStreams *iostreams.IOStreams

	Config func() (*config.Config, error)

	Engine      func(context.Context) (*whail.Engine, error)
	CloseEngine func()
}
