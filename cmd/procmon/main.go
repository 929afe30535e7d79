package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/procmon/internal/collector"
	"github.com/breeze-rmm/procmon/internal/config"
	"github.com/breeze-rmm/procmon/internal/health"
	"github.com/breeze-rmm/procmon/internal/logging"
	"github.com/breeze-rmm/procmon/internal/metrics"
	"github.com/breeze-rmm/procmon/internal/provider"
	"github.com/breeze-rmm/procmon/internal/store"
)

var (
	version  = "0.1.0"
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "procmon",
	Short:         "Live process monitor",
	Long:          `procmon - periodically snapshots OS processes, derives CPU usage and terminates processes safely`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "procmon v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./procmon.yaml or /etc/procmon/procmon.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level from config")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newKillCmd())
	rootCmd.AddCommand(newWatchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs.
type app struct {
	cfg     *config.Config
	store   *store.Store
	metrics *metrics.Recorder
	health  *health.Monitor
	closers []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}

func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if result := cfg.ValidateTiered(); result.HasFatals() {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(result.Fatals...))
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
		health:  health.NewMonitor(),
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rw)
		out = rw
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	c := collector.New(provider.New(),
		collector.WithWorkers(cfg.Collector.Workers),
		collector.WithTimeout(cfg.CollectorTimeout()),
	)
	a.store = store.New(c, store.WithMetrics(a.metrics), store.WithHealth(a.health))

	return a, nil
}
