package factory

import (
	"context"
	"os"
	"sync"

	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/internal/iostreams"
	"github.com/mike10004/containment-sub001/internal/logger"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point (internal/containment/cmd.go).
// Tests should NOT import this package; construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	f := &cmdutil.Factory{
		WorkDir:   wd,
		Version:   version,
		Commit:    commit,
		IOStreams: iostreams.NewIOStreams(),
	}

	// Config
	var (
		configOnce sync.Once
		configData *config.Config
		configErr  error
	)
	f.Config = func() (*config.Config, error) {
		configOnce.Do(func() {
			configData, configErr = config.Load(f.WorkDir)
		})
		return configData, configErr
	}

	// Docker engine
	var (
		engineOnce sync.Once
		engine     *whail.Engine
		engineErr  error
	)
	f.Engine = func(ctx context.Context) (*whail.Engine, error) {
		engineOnce.Do(func() {
			cfg, err := f.Config()
			if err != nil {
				engineErr = err
				return
			}
			engine, engineErr = whail.New(ctx, whail.EngineOptions{LabelPrefix: cfg.Docker.LabelPrefix})
		})
		return engine, engineErr
	}
	f.CloseEngine = func() {
		if engine != nil {
			if err := engine.Close(); err != nil {
				logger.Debug().Err(err).Msg("closing docker client")
			}
		}
	}

	return f
}
