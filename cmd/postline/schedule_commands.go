package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"postline/internal/api"
	"postline/internal/ipc"
	"postline/internal/publisher"
	"postline/internal/schedule"
)

func newRunNowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run-now",
		Short: "Trigger an immediate firing and wait for its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunNow()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printFiring(cmd.OutOrStdout(), resp.Firing)
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show configured posting times and their next occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Schedule()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No posting times configured")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{entry.Time, formatDisplayTime(entry.Next), entry.Spec})
				}
				fmt.Fprintf(out, "Timezone: %s\n", resp.Timezone)
				fmt.Fprint(out, renderTable([]string{"Time", "Next", "Cron"}, rows, nil))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func printFiring(out io.Writer, firing api.FiringReport) {
	switch schedule.Result(firing.Result) {
	case schedule.ResultEmpty:
		fmt.Fprintln(out, "Queue has no pending items; nothing posted")
		return
	case schedule.ResultClaimLost:
		fmt.Fprintf(out, "Item %d was claimed elsewhere; nothing posted\n", firing.ItemID)
		return
	case schedule.ResultError:
		fmt.Fprintf(out, "Firing %s failed: %s\n", firing.ID, firing.Error)
		return
	}

	name := firing.PayloadName
	if name == "" {
		name = fmt.Sprintf("item %d", firing.ItemID)
	}
	switch publisher.Kind(firing.Outcome) {
	case publisher.KindSuccess:
		fmt.Fprintf(out, "Posted %s (item %d)\n", name, firing.ItemID)
	default:
		reason := strings.TrimSpace(firing.Reason)
		if reason == "" {
			reason = "no reason given"
		}
		fmt.Fprintf(out, "Upload of %s (item %d) was %s: %s\n", name, firing.ItemID, firing.Outcome, reason)
		fmt.Fprintf(out, "Item is now %s after %d attempts\n", formatStatusLabel(firing.Status), firing.AttemptCount)
	}
	if firing.Recovered > 0 {
		fmt.Fprintf(out, "Recovered %d stale items before the firing\n", firing.Recovered)
	}
}
