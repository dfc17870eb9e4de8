package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"vestry/internal/ipc"
)

func printEventDetail(out io.Writer, evt ipc.EventDetail) {
	fmt.Fprintf(out, "ID:        %s\n", evt.ID)
	fmt.Fprintf(out, "Title:     %s\n", evt.Title)
	if evt.Speaker != "" {
		fmt.Fprintf(out, "Speaker:   %s\n", evt.Speaker)
	}
	if evt.Series != "" {
		fmt.Fprintf(out, "Series:    %s\n", evt.Series)
	}
	if evt.Scripture != "" {
		fmt.Fprintf(out, "Scripture: %s\n", evt.Scripture)
	}
	fmt.Fprintf(out, "Language:  %s\n", evt.Language)
	fmt.Fprintf(out, "Status:    %s\n", evt.Status)
	fmt.Fprintf(out, "Created:   %s\n", evt.CreatedAt.Local().Format(timestampFormat))
	if evt.Archived {
		fmt.Fprintln(out, "Archived:  yes")
	}
	if evt.Notes != "" {
		fmt.Fprintf(out, "Notes:     %s\n", evt.Notes)
	}
	fmt.Fprintf(out, "Modules:   %s\n", formatToggles(evt.Modules))
	if len(evt.InputRefs) > 0 {
		fmt.Fprintf(out, "Inputs:    %s\n", strings.Join(evt.InputRefs, ", "))
	}
	if len(evt.Results) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderResultsTable(evt.Results))
	}
}

func renderResultsTable(results []ipc.ModuleResult) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		detail := res.SkipReason
		if detail == "" && res.ErrorKind != "" {
			detail = res.ErrorKind
			if res.ErrorDetail != "" {
				detail = fmt.Sprintf("%s: %s", res.ErrorKind, truncate(res.ErrorDetail, 60))
			}
		}
		rows = append(rows, []string{
			res.Module,
			res.Status,
			fmt.Sprintf("%d", res.Attempts),
			fmt.Sprintf("%d", len(res.OutputFiles)),
			detail,
		})
	}
	return renderTable(
		[]string{"Module", "Status", "Attempts", "Outputs", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func formatToggles(modules map[string]bool) string {
	if len(modules) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if modules[name] {
			parts = append(parts, name)
		} else {
			parts = append(parts, name+" (off)")
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, limit int) string {
	if limit <= 3 || len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
