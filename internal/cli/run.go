package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doridoridoriand/fastping/internal/config"
	"github.com/doridoridoriand/fastping/internal/console"
	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/history"
	"github.com/doridoridoriand/fastping/internal/log"
	"github.com/doridoridoriand/fastping/internal/metrics"
	"github.com/doridoridoriand/fastping/internal/ping"
	"github.com/doridoridoriand/fastping/internal/registry"
	"github.com/doridoridoriand/fastping/internal/state"
	"github.com/doridoridoriand/fastping/internal/supervisor"
	"github.com/doridoridoriand/fastping/internal/worker"
)

func newRunCommand(stdin io.Reader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start monitoring every target in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, stdin)
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func runCommand(cmd *cobra.Command, stdin io.Reader) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	path, _ := cmd.Flags().GetString(flagConfig)
	if path != "" {
		logger.LogConfigLoad(true, path, nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Monitor(ctx, cfg, Deps{
		Stdin:  stdin,
		Stdout: cmd.OutOrStdout(),
		Logger: logger,
	})
}

// Deps are the pieces of Monitor that tests replace.
type Deps struct {
	// Spawner defaults to running the platform ping command.
	Spawner ping.Spawner
	Stdin   io.Reader
	Stdout  io.Writer
	Logger  *log.Logger
}

// Monitor runs the supervisor and its consumers until ctx ends or the user
// types quit, then shuts every worker down and drains the event stream.
func Monitor(ctx context.Context, cfg *config.Config, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}

	reg, err := registry.Open(cfg.Store, registry.DefaultTargets)
	if err != nil {
		return err
	}
	logger.Info("targets loaded", map[string]interface{}{
		"store":   reg.Path(),
		"targets": len(reg.Targets()),
	})

	profile := ping.DefaultProfile().WithOverrides(cfg.Ping.Binary, cfg.Ping.Args)
	spawner := deps.Spawner
	if spawner == nil {
		spawner = ping.NewExecSpawner(profile)
	}

	bus := event.NewBus(logger)
	store := state.NewStore(reg.Targets())
	sup := supervisor.New(reg, worker.Options{
		Spawner:       spawner,
		Profile:       profile,
		Sink:          bus,
		Logger:        logger,
		GracePeriod:   cfg.Ping.GracePeriod,
		LossWindow:    cfg.Windows.Loss,
		LatencyWindow: cfg.Windows.Latency,
	})
	sup.OnTargetsChanged(store.SetTargets)

	var recorder *history.DB
	if cfg.History.Path != "" {
		recorder, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Consumers drain until the bus closes so the final WorkerStopped
	// events are not lost; they do not watch runCtx.
	var consumers errgroup.Group
	drain := context.Background()
	con := console.New(deps.Stdout, sup, logger)
	stateSub := bus.Subscribe("state", cfg.Events.Buffer)
	consoleSub := bus.Subscribe("console", cfg.Events.Buffer)
	consumers.Go(func() error { store.Run(drain, stateSub); return nil })
	consumers.Go(func() error { con.Print(drain, consoleSub); return nil })
	if recorder != nil {
		historySub := bus.Subscribe("history", cfg.Events.Buffer)
		consumers.Go(func() error { recorder.Run(drain, historySub); return nil })
	}

	var services errgroup.Group
	if cfg.Metrics.Listen != "" {
		server := metrics.NewServer(cfg.Metrics.Mode, store, bus.Dropped)
		services.Go(func() error {
			err := metrics.Serve(runCtx, cfg.Metrics.Listen, server)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.LogError("metrics", err, map[string]interface{}{"listen": cfg.Metrics.Listen})
			}
			return nil
		})
	}
	if cfg.Watch {
		services.Go(func() error {
			err := reg.Watch(runCtx, registry.DefaultDebounce, logger, func() {
				_, _, err := sup.ReloadRegistry()
				if err != nil && !errors.Is(err, supervisor.ErrShutdown) {
					logger.Debug("store reload skipped", map[string]interface{}{"error": err.Error()})
				}
			})
			if err != nil {
				logger.LogError("registry", err, nil)
			}
			return nil
		})
	}
	if deps.Stdin != nil {
		services.Go(func() error {
			quit, err := con.Commands(runCtx, deps.Stdin)
			if err != nil {
				logger.LogError("console", err, nil)
			}
			if quit {
				cancel()
			}
			return nil
		})
	}

	if err := sup.Start(runCtx); err != nil {
		cancel()
		_ = services.Wait()
		bus.Close()
		_ = consumers.Wait()
		return err
	}

	<-runCtx.Done()
	logger.Info("shutting down", nil)
	shutdownErr := sup.Shutdown()
	_ = services.Wait()
	bus.Close()
	_ = consumers.Wait()

	if dropped := bus.Dropped(); dropped > 0 {
		logger.Warn("events dropped by slow consumers", map[string]interface{}{"dropped": dropped})
	}
	return shutdownErr
}
