package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/procmon/internal/process"
	"github.com/breeze-rmm/procmon/internal/store"
)

func newListCmd() *cobra.Command {
	var (
		output string
		filter string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one snapshot of all processes",
		Long: `Takes two samples one refresh interval apart so CPU usage is meaningful,
then prints the second snapshot sorted by name and PID.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := sampleTwice(cmd.Context(), a.store, a.cfg.RefreshInterval())
			if err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), snap.Filter(filter), output, limit)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	cmd.Flags().StringVar(&filter, "filter", "", "only show processes whose name, command line or PID contains this")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to print (0 = all)")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <pid>",
		Short: "Print every attribute of one process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := sampleTwice(cmd.Context(), a.store, a.cfg.RefreshInterval())
			if err != nil {
				return err
			}
			rec, ok := snap.ByPID(pid)
			if !ok {
				return fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
			}
			return writeFields(cmd.OutOrStdout(), rec)
		},
	}
}

// sampleTwice refreshes st twice, interval apart, so the returned snapshot
// carries CPU usage for every process that survived both samples.
func sampleTwice(ctx context.Context, st *store.Store, interval time.Duration) (process.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	first := time.Now()
	if _, err := st.RefreshIfDue(ctx, first, interval); err != nil {
		return process.Snapshot{}, err
	}

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		return process.Snapshot{}, ctx.Err()
	}

	if _, err := st.RefreshIfDue(ctx, first.Add(interval), interval); err != nil {
		return process.Snapshot{}, err
	}
	return st.Current(), nil
}

func parsePID(s string) (uint32, error) {
	pid, err := strconv.ParseUint(s, 10, 32)
	if err != nil || pid == 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return uint32(pid), nil
}
