package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"postline/internal/ipc"
	"postline/internal/queue"
	"postline/internal/queueaccess"
)

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var database bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if database {
				health, err := ctx.databaseHealth(cmd)
				if err != nil {
					return err
				}
				printDatabaseHealth(out, health)
				return nil
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total: %d\nPending: %d\nIn Progress: %d\nPosted: %d\nFailed: %d\n",
					health.Total,
					health.Pending,
					health.InProgress,
					health.Posted,
					health.Failed,
				)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&database, "db", false, "Show database diagnostics instead of item counts")
	return cmd
}

func (c *commandContext) databaseHealth(cmd *cobra.Command) (queue.DatabaseHealth, error) {
	if client, err := ipc.Dial(c.socketPath()); err == nil {
		defer client.Close()
		resp, err := client.DatabaseHealth()
		if err != nil {
			return queue.DatabaseHealth{}, err
		}
		return queue.DatabaseHealth{
			DBPath:           resp.DBPath,
			DatabaseExists:   resp.DatabaseExists,
			DatabaseReadable: resp.DatabaseReadable,
			SchemaVersion:    resp.SchemaVersion,
			TableExists:      resp.TableExists,
			MissingColumns:   resp.MissingColumns,
			IntegrityCheck:   resp.IntegrityCheck,
			TotalItems:       resp.TotalItems,
			Error:            resp.Error,
		}, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	defer store.Close()
	return store.CheckHealth(cmd.Context())
}

func printDatabaseHealth(out io.Writer, health queue.DatabaseHealth) {
	missing := "none"
	if len(health.MissingColumns) > 0 {
		missing = strings.Join(health.MissingColumns, ", ")
	}
	fmt.Fprintf(out, "Database: %s\n", health.DBPath)
	fmt.Fprintf(out, "Exists: %s\n", yesNo(health.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
	fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
	fmt.Fprintf(out, "Table present: %s\n", yesNo(health.TableExists))
	fmt.Fprintf(out, "Missing columns: %s\n", missing)
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
	fmt.Fprintf(out, "Total items: %d\n", health.TotalItems)
	if health.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", health.Error)
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
