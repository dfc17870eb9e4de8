package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vestry/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		force    []string
		forceAll bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "run <event-id>",
		Short: "Execute the workflow for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Run(ipc.RunRequest{
					ID:       args[0],
					Force:    normalizeModules(force),
					ForceAll: forceAll,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Report)
				}
				printRunReport(cmd.OutOrStdout(), resp.Report)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&force, "force", nil, "Rerun these modules even if they already succeeded")
	cmd.Flags().BoolVar(&forceAll, "force-all", false, "Rerun every enabled module")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func printRunReport(out io.Writer, report ipc.RunReport) {
	duration := report.FinishedAt.Sub(report.StartedAt).Round(10 * time.Millisecond)
	fmt.Fprintf(out, "Run %s for event %s finished: %s (status %s, %s)\n",
		report.RunID, report.EventID, report.Outcome, report.Status, duration)
	if len(report.Executed) > 0 {
		fmt.Fprintf(out, "Executed: %s\n", strings.Join(report.Executed, ", "))
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(out, "Failed:   %s\n", strings.Join(report.Failed, ", "))
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped:  %s\n", strings.Join(report.Skipped, ", "))
	}
}
