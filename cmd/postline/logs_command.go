package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postline/internal/ipc"
	"postline/internal/logs"
)

const logFollowWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var itemID int64
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			req := ipc.LogTailRequest{
				Offset: -1,
				Limit:  lines,
				ItemID: itemID,
				Level:  level,
			}
			fetch, closeFn, err := ctx.logFetcher()
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			for {
				resp, err := fetch(runCtx, req)
				if err != nil {
					if runCtx.Err() != nil {
						return nil
					}
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				req.Offset = resp.Offset
				req.Limit = 0
				req.Follow = true
				req.WaitMillis = int(logFollowWait / time.Millisecond)
				if runCtx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines")
	cmd.Flags().Int64Var(&itemID, "item", 0, "Only show lines for this queue item")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}

type logFetchFunc func(context.Context, ipc.LogTailRequest) (*ipc.LogTailResponse, error)

// logFetcher reads through the daemon when it is reachable and falls back to
// the current run log pointer on disk.
func (c *commandContext) logFetcher() (logFetchFunc, func(), error) {
	if client, err := ipc.Dial(c.socketPath()); err == nil {
		fetch := func(_ context.Context, req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
			return client.LogTail(req)
		}
		return fetch, func() { _ = client.Close() }, nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	path := filepath.Join(cfg.Paths.LogDir, "postline.log")
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("daemon not running and no log found at %s", path)
	}
	fetch := func(ctx context.Context, req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
		result, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset:   req.Offset,
			Limit:    req.Limit,
			Follow:   req.Follow,
			Wait:     time.Duration(req.WaitMillis) * time.Millisecond,
			ItemID:   req.ItemID,
			MinLevel: req.Level,
		})
		if err != nil {
			return nil, err
		}
		return &ipc.LogTailResponse{Lines: result.Lines, Offset: result.Offset}, nil
	}
	return fetch, func() {}, nil
}
