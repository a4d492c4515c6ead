package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cachekit"
	"github.com/unkn0wn-root/cachekit/codec"
	asynchook "github.com/unkn0wn-root/cachekit/hooks/async"
	zapadapter "github.com/unkn0wn-root/cachekit/log/zap"
	"github.com/unkn0wn-root/cachekit/metrics"
	"github.com/unkn0wn-root/cachekit/sloghooks"
)

var errNotFound = errors.New("not found")

type app struct {
	configPath string
	backend    string
	verbose    bool
	stats      bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Read, write and clear cachekit entries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "cache.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "Storage backend: file, redis or s3 (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Log cache internals to stderr")
	rootCmd.PersistentFlags().BoolVar(&a.stats, "stats", false, "Print counters and latencies after the command")

	rootCmd.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.delCmd(),
		a.clearCmd(),
		a.lockCmd(),
		a.unlockCmd(),
		a.lockedCmd(),
	)
	return rootCmd
}

// hooks reports lock and self-heal events in verbose mode. Keys are shown
// unredacted; this is an operator tool.
func (a *app) hooks(w io.Writer) (cachekit.Hooks, func()) {
	if !a.verbose {
		return cachekit.NopHooks{}, func() {}
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := asynchook.New(sloghooks.New(l, sloghooks.Options{
		Redact: func(k string) string { return k },
	}), 1, 256)
	return h, h.Close
}

func (a *app) logger() (*zap.Logger, error) {
	if !a.verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// with opens the configured cache, runs fn and tears everything down again.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, c cachekit.Cache[string]) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := a.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fc, cfg, err := loadFileConfig(a.configPath)
	if err != nil {
		return err
	}
	prov, err := openProvider(ctx, fc, a.backend)
	if err != nil {
		return err
	}

	hooks, flush := a.hooks(cmd.ErrOrStderr())
	defer flush()

	latency := metrics.NewLatencyTracker(0)
	c, err := cachekit.New[string](cachekit.Options[string]{
		Config:   cfg,
		Provider: prov,
		Codec:    codec.String{},
		Logger:   zapadapter.New(log),
		Hooks:    hooks,
		Latency:  latency,
	})
	if err != nil {
		_ = prov.Close(ctx)
		return err
	}
	defer func() {
		if err := c.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("close cache", zap.Error(err))
		}
	}()

	if !c.Enabled() {
		log.Warn("cache is disabled in config; commands are no-ops")
	}

	runErr := fn(ctx, c)
	if a.stats {
		printStats(cmd.ErrOrStderr(), c.Stats(), latency)
	}
	return runErr
}

func printStats(w io.Writer, st cachekit.Stats, latency *metrics.LatencyTracker) {
	fmt.Fprintf(w, "reads=%d writes=%d ops=%d read_kb=%.2f write_kb=%.2f\n",
		st.ReadTimes, st.WriteTimes, st.ExecTimes, st.ReadSize, st.WriteSize)
	for _, s := range latency.AllStats() {
		fmt.Fprintln(w, s.String())
	}
}
