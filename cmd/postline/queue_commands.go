package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postline/internal/api"
	"postline/internal/queue"
	"postline/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueResetFailedCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearPostedCommand(ctx))
	queueCmd.AddCommand(newQueueExportCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items in posting order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.QueueListResponse{Items: api.SortQueueItemsFIFO(items)})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "File", "Caption", "Status", "Attempts", "Enqueued"},
					buildQueueListRows(items, ctx.maxRetry()),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by state: pending, in_progress, posted, failed (repeatable)")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", ids[0])
				}
				if asJSON {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderFields(queueItemFields(*item, ctx.maxRetry())))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var caption string
	var captionFile string
	var importFile bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a media file to the end of the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if caption != "" && captionFile != "" {
				return errors.New("specify only one of --caption or --caption-file")
			}
			if captionFile != "" {
				data, err := os.ReadFile(captionFile)
				if err != nil {
					return fmt.Errorf("read caption file: %w", err)
				}
				caption = strings.TrimRight(string(data), "\r\n")
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Add(cmd.Context(), queueaccess.AddRequest{
					Path:    args[0],
					Caption: caption,
					Source:  "cli",
					Import:  importFile,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.QueueItemResponse{Item: item})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s)\n", item.ID, item.PayloadName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&caption, "caption", "", "Caption to post with the file")
	cmd.Flags().StringVar(&captionFile, "caption-file", "", "Read the caption from a file")
	cmd.Flags().BoolVar(&importFile, "import", false, "Copy the file into the media directory before queueing")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newQueueResetFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-failed [itemID...]",
		Short: "Return failed items to pending (all failed items when no IDs are given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				result, err := access.ResetFailed(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintf(out, "Reset %d failed items\n", result.UpdatedCount)
					return nil
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.ResetItemUpdated:
						fmt.Fprintf(out, "Item %d reset to pending\n", item.ID)
					case api.ResetItemNotFound:
						fmt.Fprintf(out, "Item %d not found\n", item.ID)
					case api.ResetItemNotFailed:
						fmt.Fprintf(out, "Item %d is %s, not failed\n", item.ID, formatStatusLabel(item.PriorStatus))
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID...>",
		Short: "Remove items from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				result, err := access.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RemoveItemRemoved:
						fmt.Fprintf(out, "Item %d removed\n", item.ID)
					case api.RemoveItemNotFound:
						fmt.Fprintf(out, "Item %d not found\n", item.ID)
					case api.RemoveItemInProgress:
						fmt.Fprintf(out, "Item %d is uploading and cannot be removed\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearPending bool
	var clearFailed bool
	var clearPosted bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items by state",
		Long:  "Remove pending, failed, or posted items. Items being uploaded are never removed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []string
			if clearPending {
				statuses = append(statuses, string(queue.StatusPending))
			}
			if clearFailed {
				statuses = append(statuses, string(queue.StatusFailed))
			}
			if clearPosted {
				statuses = append(statuses, string(queue.StatusPosted))
			}
			switch {
			case clearAll && len(statuses) > 0:
				return errors.New("--all cannot be combined with --pending, --failed, or --posted")
			case !clearAll && len(statuses) == 0:
				return errors.New("specify --pending, --failed, --posted, or --all")
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				label := "queue"
				if len(statuses) == 1 {
					label = statuses[0]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s items\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearPending, "pending", false, "Remove pending items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed items")
	cmd.Flags().BoolVar(&clearPosted, "posted", false, "Remove posted items")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item that is not being uploaded")
	return cmd
}

func newQueueClearPostedCommand(ctx *commandContext) *cobra.Command {
	var olderThan int
	cmd := &cobra.Command{
		Use:   "clear-posted",
		Short: "Remove posted items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				removed, err := access.ClearPosted(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d posted items\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&olderThan, "older-than", 0, "Only remove items posted more than this many days ago")
	return cmd
}

func newQueueExportCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export queue items as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				items = api.SortQueueItemsFIFO(items)
				if output == "" || output == "-" {
					return api.WriteQueueCSV(cmd.OutOrStdout(), items)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := api.WriteQueueCSV(file, items); err != nil {
					_ = file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("close export file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d items to %s\n", len(items), output)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by state (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write CSV to this file instead of stdout")
	return cmd
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *commandContext) maxRetry() int {
	if cfg := c.configValue(); cfg != nil {
		return cfg.Upload.MaxRetry
	}
	return 0
}
