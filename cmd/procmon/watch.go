package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/breeze-rmm/procmon/internal/health"
	"github.com/breeze-rmm/procmon/internal/logging"
	"github.com/breeze-rmm/procmon/internal/process"
)

var log = logging.L("main")

func newWatchCmd() *cobra.Command {
	var (
		filter string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh on the configured interval and print the process table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var srv *http.Server
			if a.cfg.MetricsAddr != "" {
				if srv, err = startMetricsServer(a.cfg.MetricsAddr, a); err != nil {
					return err
				}
			}

			log.Info("watching processes",
				"interval", a.cfg.RefreshInterval().String(),
				"workers", a.cfg.Collector.Workers,
			)

			out := cmd.OutOrStdout()
			a.store.Run(ctx, a.cfg.RefreshInterval(), func(snap process.Snapshot, err error) {
				c, _ := a.health.Get(health.ComponentCollector)
				printWatchFrame(out, snap, err, c.Failures, filter, limit)
			})

			log.Info("shutting down")
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn("metrics server shutdown", logging.KeyError, err.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only show processes whose name, command line or PID contains this")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum rows per refresh (0 = all)")
	return cmd
}

func printWatchFrame(w io.Writer, snap process.Snapshot, err error, failures int, filter string, limit int) {
	if err != nil {
		fmt.Fprintf(w, "refresh failed (%d in a row): %v (showing previous snapshot)\n", failures, err)
	}
	filtered := snap.Filter(filter)
	fmt.Fprintf(w, "\n%s  %d processes\n", snap.TakenAt().Format(time.TimeOnly), filtered.Len())
	if werr := writeTable(w, filtered, limit); werr != nil {
		log.Warn("write table", logging.KeyError, werr.Error())
	}
}

// maxMetricsConns caps concurrent connections to the metrics listener.
const maxMetricsConns = 8

func startMetricsServer(addr string, a *app) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	srv := &http.Server{
		Handler:           newMetricsMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.health.Update(health.ComponentMetrics, health.Healthy, "")
	go func() {
		log.Info("metrics server listening", "addr", ln.Addr().String())
		if err := srv.Serve(netutil.LimitListener(ln, maxMetricsConns)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logging.KeyError, err.Error())
			a.health.Update(health.ComponentMetrics, health.Unhealthy, err.Error())
		}
	}()
	return srv, nil
}

func newMetricsMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if a.health.Overall() == health.Unhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(a.health.Summary())
	})
	return mux
}
