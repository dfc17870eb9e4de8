package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vestry/internal/ipc"
)

const timestampFormat = "2006-01-02 15:04"

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		speaker   string
		series    string
		scripture string
		language  string
		notes     string
		startsAt  string
		enable    []string
		disable   []string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Register a new event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.EventCreateRequest{
				Title:     args[0],
				Speaker:   speaker,
				Series:    series,
				Scripture: scripture,
				Language:  language,
				Notes:     notes,
			}
			if strings.TrimSpace(startsAt) != "" {
				parsed, err := parseStartsAt(startsAt)
				if err != nil {
					return err
				}
				req.StartsAt = parsed
			}
			if len(enable) > 0 || len(disable) > 0 {
				modules, err := togglePatch(enable, disable)
				if err != nil {
					return err
				}
				req.Modules = modules
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventCreate(req)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Event)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created event %s\n", resp.Event.ID)
				printEventDetail(out, resp.Event)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&speaker, "speaker", "", "Speaker name")
	cmd.Flags().StringVar(&series, "series", "", "Series name")
	cmd.Flags().StringVar(&scripture, "scripture", "", "Scripture reference")
	cmd.Flags().StringVar(&language, "language", "", "Spoken language (default auto)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&startsAt, "starts-at", "", "Event start time (2006-01-02 15:04 or RFC 3339)")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Enable these modules")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Disable these modules")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses []string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventList(ipc.EventListRequest{Statuses: statuses})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Events)
				}
				out := cmd.OutOrStdout()
				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No events")
					return nil
				}
				rows := make([][]string, 0, len(resp.Events))
				for _, evt := range resp.Events {
					rows = append(rows, []string{
						evt.ID,
						evt.Title,
						evt.Speaker,
						evt.Status,
						fmt.Sprintf("%d", evt.Inputs),
						yesNo(evt.Archived),
						evt.CreatedAt.Local().Format(timestampFormat),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Speaker", "Status", "Inputs", "Archived", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, processing, completed, failed, partial)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventDescribe(args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Event)
				}
				printEventDetail(cmd.OutOrStdout(), resp.Event)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var (
		speaker   string
		series    string
		scripture string
		language  string
		notes     string
		enable    []string
		disable   []string
		archive   bool
		unarchive bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "edit <event-id>",
		Short: "Edit event metadata and module toggles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archive && unarchive {
				return fmt.Errorf("--archive and --unarchive are mutually exclusive")
			}
			req := ipc.EventUpdateRequest{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("speaker") {
				req.Speaker = &speaker
			}
			if flags.Changed("series") {
				req.Series = &series
			}
			if flags.Changed("scripture") {
				req.Scripture = &scripture
			}
			if flags.Changed("language") {
				req.Language = &language
			}
			if flags.Changed("notes") {
				req.Notes = &notes
			}
			if len(enable) > 0 || len(disable) > 0 {
				modules, err := togglePatch(enable, disable)
				if err != nil {
					return err
				}
				req.Modules = modules
			}
			if archive || unarchive {
				value := archive
				req.Archived = &value
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventUpdate(req)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Event)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated event %s\n", resp.Event.ID)
				printEventDetail(out, resp.Event)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&speaker, "speaker", "", "Speaker name")
	cmd.Flags().StringVar(&series, "series", "", "Series name")
	cmd.Flags().StringVar(&scripture, "scripture", "", "Scripture reference")
	cmd.Flags().StringVar(&language, "language", "", "Spoken language")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Enable these modules")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Disable these modules")
	cmd.Flags().BoolVar(&archive, "archive", false, "Mark the event archived")
	cmd.Flags().BoolVar(&unarchive, "unarchive", false, "Clear the archived mark")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func newAttachCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <event-id> <file>",
		Short: "Attach a recording to an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventAttach(args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Attached %s to event %s (%d input(s))\n",
					args[1], resp.Event.ID, len(resp.Event.InputRefs))
				return nil
			})
		},
	}
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var deleteFiles bool

	cmd := &cobra.Command{
		Use:   "remove <event-id>",
		Short: "Remove an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EventRemove(args[0], deleteFiles)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Removed {
					if deleteFiles {
						fmt.Fprintf(out, "Removed event %s and its files\n", args[0])
					} else {
						fmt.Fprintf(out, "Removed event %s (files left in place)\n", args[0])
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete the event directory")
	return cmd
}

func parseStartsAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, timestampFormat, "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start time %q (expected 2006-01-02 15:04 or RFC 3339)", value)
}

// togglePatch merges --enable and --disable into a partial toggle patch.
// Unlisted modules keep their current setting.
func togglePatch(enable, disable []string) (map[string]bool, error) {
	modules := make(map[string]bool)
	for _, name := range normalizeModules(enable) {
		modules[name] = true
	}
	for _, name := range normalizeModules(disable) {
		if modules[name] {
			return nil, fmt.Errorf("module %q appears in both --enable and --disable", name)
		}
		modules[name] = false
	}
	return modules, nil
}

func normalizeModules(values []string) []string {
	names := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.ToLower(strings.TrimSpace(value))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
