package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"vestry/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and event status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusWarn
				runningMessage := "not running"
				if resp.Running {
					runningKind = statusOK
					runningMessage = fmt.Sprintf("pid %d", resp.PID)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", runningKind, runningMessage, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Store", statusInfo, resp.StoreDBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, resp.LockPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Adapters", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, adapter := range resp.Adapters {
					fmt.Fprintln(stdout, renderAdapterLine(adapter, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Active Runs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(resp.ActiveRuns) == 0 {
					fmt.Fprintln(stdout, "No active runs")
				} else {
					rows := make([][]string, 0, len(resp.ActiveRuns))
					for _, run := range resp.ActiveRuns {
						rows = append(rows, []string{
							run.EventID,
							run.RunID,
							run.AcquiredAt.Local().Format(timestampFormat),
							time.Since(run.HeartbeatAt).Round(time.Second).String(),
						})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"Event", "Run", "Started", "Last Heartbeat"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
					))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Events", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildEventCountRows(resp.EventCounts)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No events")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func renderAdapterLine(adapter ipc.AdapterStatus, colorize bool) string {
	switch {
	case adapter.Builtin:
		return renderStatusLine(adapter.Module, statusInfo, "built-in stub", colorize)
	case adapter.Available:
		return renderStatusLine(adapter.Module, statusOK, fmt.Sprintf("command: %s", adapter.Command), colorize)
	default:
		detail := adapter.Detail
		if detail == "" {
			detail = "not available"
		}
		return renderStatusLine(adapter.Module, statusError, detail, colorize)
	}
}

var statusDisplayOrder = []string{"pending", "processing", "completed", "partial", "failed"}

func buildEventCountRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, status := range statusDisplayOrder {
		if count, ok := counts[status]; ok && count > 0 {
			rows = append(rows, []string{status, fmt.Sprintf("%d", count)})
			seen[status] = true
		}
	}
	extra := make([]string, 0)
	for status, count := range counts {
		if !seen[status] && count > 0 {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	for _, status := range extra {
		rows = append(rows, []string{status, fmt.Sprintf("%d", counts[status])})
	}
	return rows
}
