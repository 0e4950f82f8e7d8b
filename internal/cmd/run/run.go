package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/config"
	"github.com/mike10004/containment-sub001/internal/fixtures"
	"github.com/mike10004/containment-sub001/internal/iostreams"
	"github.com/mike10004/containment-sub001/internal/logger"
	"github.com/mike10004/containment-sub001/internal/signals"
	"github.com/mike10004/containment-sub001/pkg/dockerdriver"
	"github.com/mike10004/containment-sub001/pkg/lifecycle"
	"github.com/mike10004/containment-sub001/pkg/lifecycle/lifecyclemetrics"
	"github.com/mike10004/containment-sub001/pkg/whail"
)

// MetricsNamespace prefixes the exported Prometheus metrics.
const MetricsNamespace = "containment"

// RunOptions holds options for the run command.
type RunOptions struct {
	IOStreams *iostreams.IOStreams
	Config    func() (*config.Config, error)
	Engine    func(context.Context) (*whail.Engine, error)

	// Wait blocks until the fixtures should be torn down.
	Wait func(ctx context.Context) error

	All         bool
	MetricsAddr string

	Fixtures []string
}

// NewCmdRun creates the run command.
func NewCmdRun(f *cmdutil.Factory, runF func(context.Context, *RunOptions) error) *cobra.Command {
	opts := &RunOptions{
		IOStreams: f.IOStreams,
		Config:    f.Config,
		Engine:    f.Engine,
		Wait:      waitForSignal,
	}

	cmd := &cobra.Command{
		Use:   "run [FIXTURE...]",
		Short: "Start fixtures and keep them running until interrupted",
		Long: `Starts the named fixtures from containment.yaml, prints their published
ports, and waits for Ctrl+C. All fixtures are then stopped and removed.

Fixtures start concurrently. If any fixture fails to start, the others are
torn down and the command fails.`,
		Example: `  # Start the redis fixture
  containment run redis

  # Start every configured fixture and expose lifecycle metrics
  containment run --all --metrics-addr 127.0.0.1:9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Fixtures = args
			if opts.All && len(args) > 0 {
				return cmdutil.FlagErrorf("--all and fixture arguments are mutually exclusive")
			}
			if runF != nil {
				return runF(cmd.Context(), opts)
			}
			return runRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Start every configured fixture")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// started pairs a fixture with its running container.
type started struct {
	name      string
	container *dockerdriver.Container
}

func runRun(ctx context.Context, opts *RunOptions) error {
	ios := opts.IOStreams

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	selected, err := fixtures.Select(cfg, opts.Fixtures, opts.All)
	if err != nil {
		return cmdutil.FlagErrorf("%s", err)
	}

	engine, err := opts.Engine(ctx)
	if err != nil {
		return fmt.Errorf("connecting to Docker: %w", err)
	}
	factory := dockerdriver.NewFactory(
		dockerdriver.WithEngine(engine),
		dockerdriver.WithLogger(logger.Log),
		dockerdriver.WithHost(cfg.Docker.Host),
	)

	listeners := []lifecycle.Listener{lifecycle.LogListener(logger.Log)}
	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		listeners = append(listeners, lifecyclemetrics.New(reg, MetricsNamespace))
		stop, err := serveMetrics(opts.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	registry := lifecycle.NewRegistry[*dockerdriver.Params, *dockerdriver.Container](
		lifecycle.WithListener(lifecycle.Listeners(listeners...)),
		lifecycle.WithLogger(logger.Log),
	)
	defer func() {
		if err := registry.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("fixture teardown incomplete")
		}
	}()

	defs := make([]fixtures.Definition, len(selected))
	for i, fx := range selected {
		if defs[i], err = fixtures.Build(factory, fx, cfg.Docker); err != nil {
			return err
		}
	}

	running := make([]started, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		g.Go(func() error {
			c, err := registry.Acquire(gctx, def)
			if err != nil {
				return fmt.Errorf("fixture %s: %w", def.Name(), err)
			}
			running[i] = started{name: def.Name(), container: c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tp := ios.NewTablePrinter("FIXTURE", "CONTAINER", "PORTS")
	for _, s := range running {
		tp.AddRow(s.name, s.container.Name, formatPorts(s.container))
	}
	if err := tp.Render(); err != nil {
		return err
	}
	fmt.Fprintln(ios.ErrOut, "Fixtures are running. Press Ctrl+C to stop them.")

	if err := opts.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(ios.ErrOut, "Stopping fixtures...")
	return nil
}

// formatPorts renders "6379/tcp->127.0.0.1:32768" pairs in port order.
func formatPorts(c *dockerdriver.Container) string {
	keys := make([]string, 0, len(c.Ports))
	for k := range c.Ports {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		addr, _ := c.HostAddress(k)
		parts[i] = k + "->" + addr
	}
	return strings.Join(parts, ", ")
}

func waitForSignal(ctx context.Context) error {
	sigCtx, cancel := signals.SetupSignalContext(ctx)
	defer cancel()
	<-sigCtx.Done()
	return nil
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("serving metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("serving lifecycle metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
