// Package root assembles the containment command tree.
package root

import (
	"github.com/spf13/cobra"

	"github.com/mike10004/containment-sub001/internal/cmd/prune"
	"github.com/mike10004/containment-sub001/internal/cmd/run"
	versioncmd "github.com/mike10004/containment-sub001/internal/cmd/version"
	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/internal/logger"
)

// NewCmdRoot creates the root command for the containment CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "containment",
		Short: "Run Docker test fixtures from containment.yaml",
		Long: `Containment starts the Docker containers your tests depend on.

Fixtures are declared in containment.yaml in the working directory:

  fixtures:
    - name: redis
      image: redis:7-alpine
      ports: ["6379"]

Quick start:
  containment run redis    # Start redis and wait for Ctrl+C
  containment prune        # Remove containers left by killed test runs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger(f)

			logger.Debug().
				Str("version", f.Version).
				Str("workdir", f.WorkDir).
				Bool("debug", f.Debug).
				Msg("containment starting")

			return nil
		},
		Version: f.Version,
	}

	cmd.PersistentFlags().BoolVarP(&f.Debug, "debug", "D", false, "Enable debug logging")
	cmd.SetVersionTemplate(versioncmd.Format(f.Version, f.Commit))

	cmd.AddCommand(run.NewCmdRun(f, nil))
	cmd.AddCommand(prune.NewCmdPrune(f, nil))
	cmd.AddCommand(versioncmd.NewCmdVersion(f))

	return cmd
}

// initializeLogger sets up file logging from the config's logging section.
// Falls back to console-only logging on any errors.
func initializeLogger(f *cmdutil.Factory) {
	cfg, err := f.Config()
	if err != nil {
		logger.Init(f.Debug)
		// The command reports the config error itself.
		return
	}
	debug := f.Debug || cfg.Logging.Debug

	logsDir, err := config.LogsDir()
	if err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to get logs directory")
		return
	}

	logCfg := &logger.LoggingConfig{
		FileEnabled: cfg.Logging.FileEnabled,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		MaxBackups:  cfg.Logging.MaxBackups,
	}
	if err := logger.InitWithFile(debug, logsDir, logCfg); err != nil {
		logger.Init(debug)
		logger.Warn().Err(err).Msg("file logging unavailable: failed to initialize file writer")
	}
}
