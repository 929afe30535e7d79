package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newKillCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "kill <pid>",
		Short: "Terminate a process",
		Long: `Sends a termination request to pid. The process is looked up again right
before the request is sent; if the PID now belongs to a process that started
at a different time, nothing is sent.`,
		Args: cobra.ExactArgs(1),
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

			ctx := cmd.Context()
			// Populate the snapshot so the start-time check has something to
			// compare against.
			if _, err := a.store.RefreshIfDue(ctx, time.Now(), a.cfg.RefreshInterval()); err != nil {
				return err
			}

			name := ""
			if rec, ok := a.store.ByPID(pid); ok {
				name = rec.Name
			}

			if err := a.store.Terminate(ctx, pid, force); err != nil {
				return err
			}

			if name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "terminated %s (pid %d)\n", name, pid)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "terminated pid %d\n", pid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "kill immediately instead of requesting a graceful exit")
	return cmd
}
