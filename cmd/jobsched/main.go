package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Andrej220/go-utils/jobsched"
	"github.com/Andrej220/go-utils/jobsched/internal/config"
)

var version = "v0.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jobsched",
		Short:        "Capability-routed job scheduler",
		Long:         "jobsched drives the scheduling engine with a synthetic load and reports placement and throughput.",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var configFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic load through the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			undo := zap.ReplaceGlobals(logger)
			defer undo()
			defer func() { _ = logger.Sync() }()

			zap.S().Debugw("configuration loaded", "config", cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = lg.Attach(ctx, newEngineLogger(logger))

			return run(ctx, cmd, cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.String("groups", defaults.Groups, "Worker groups as mask:count pairs, e.g. 0b01:2,0b10:1")
	flags.Int("queue-capacity", defaults.QueueCapacity, "Per-worker queue capacity")
	flags.String("full-policy", defaults.FullPolicy, "What to do when a queue is full: overwrite or reject")
	flags.String("match", defaults.Match, "Capability rule: subset or tier")
	flags.Bool("pin", defaults.Pin, "Pin each worker to a CPU")
	flags.Int("jobs", defaults.Jobs, "Number of synthetic jobs")
	flags.String("job-type", defaults.JobType, "Type of the synthetic jobs")
	flags.Duration("work", defaults.Work, "Time each synthetic job sleeps")
	flags.Int("submitters", defaults.Submitters, "Concurrent submitting goroutines")
	flags.Bool("start-first", defaults.StartFirst, "Start the workers before submitting")
	flags.Duration("shutdown-timeout", defaults.ShutdownTimeout, "Upper bound for draining on shutdown")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.LogFormat, "Log format (console, json)")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			_ = v.BindPFlag(f.Name, f)
		}
	})
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg config.Configuration) error {
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return err
	}
	typ, err := config.ParseMask(cfg.JobType)
	if err != nil {
		return err
	}

	var jobErrors, internalErrors sync.Map
	opts.OnJobError = func(err error) { jobErrors.Store(err.Error(), struct{}{}) }
	opts.OnInternalError = func(err error) { internalErrors.Store(err.Error(), struct{}{}) }

	metrics := &jobsched.AtomicMetrics{}
	s, err := jobsched.NewScheduler[*jobsched.AtomicMetrics, int](ctx, metrics, opts)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	zap.S().Infow("scheduler ready", "workers", s.Workers(), "idle", s.Idle())

	if cfg.StartFirst {
		s.Start()
	}

	work := cfg.Work
	begin := time.Now()
	var wg sync.WaitGroup
	for i := range cfg.Submitters {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := id; j < cfg.Jobs; j += cfg.Submitters {
				if ctx.Err() != nil {
					return
				}
				err := s.Submit(jobsched.NewJob(typ, j, func(int) error {
					time.Sleep(work)
					return nil
				}))
				if err != nil {
					zap.S().Debugw("submit failed", "job", j, "error", err)
				}
			}
		}(i)
	}
	wg.Wait()

	placed := s.Stats()
	s.Start()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("shutdown did not complete", "error", err)
	}
	elapsed := time.Since(begin)

	out := cmd.OutOrStdout()
	if !cfg.StartFirst {
		fmt.Fprintf(out, "placement before start: %v\n", placed.QueueDepths())
	}
	fmt.Fprintln(out, s.Stats())
	fmt.Fprintf(out, "executed=%d dropped=%d failed=%d elapsed=%s\n",
		metrics.Executed(), metrics.Dropped(), metrics.Failed(), elapsed)

	zap.S().Infow("run finished",
		"executed", metrics.Executed(),
		"dropped", metrics.Dropped(),
		"failed", metrics.Failed(),
		"job_errors", countKeys(&jobErrors),
		"internal_errors", countKeys(&internalErrors),
		"elapsed", elapsed,
	)
	return nil
}

func countKeys(m *sync.Map) int {
	n := 0
	m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
