package daemon

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"postline/internal/fileutil"
	"postline/internal/logging"
)

const maintenanceInterval = time.Hour

// PruneResult contains the outcome of a posted-item cleanup.
type PruneResult struct {
	Removed      int64
	MediaDeleted []string
	Errors       []PruneError
}

// PruneError pairs a media path with its removal error.
type PruneError struct {
	Path  string
	Error error
}

// ClearPosted removes posted items whose posted_at precedes cutoff. A zero
// cutoff removes every posted item. When media deletion is enabled, payload
// files inside the media directory are removed first.
func (d *Daemon) ClearPosted(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	result := PruneResult{}
	if d.cfg.Maintenance.DeletePostedMedia {
		queryCutoff := cutoff
		if queryCutoff.IsZero() {
			queryCutoff = time.Now().Add(time.Minute)
		}
		items, err := d.store.PostedBefore(ctx, queryCutoff)
		if err != nil {
			return result, err
		}
		for _, item := range items {
			path := strings.TrimSpace(item.PayloadRef)
			if path == "" || !fileutil.IsWithin(d.cfg.Paths.MediaDir, path) {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				result.Errors = append(result.Errors, PruneError{Path: path, Error: err})
				d.logger.Warn("failed to remove posted media",
					logging.String("path", path),
					logging.Int64(logging.FieldItemID, item.ID),
					logging.Error(err),
					logging.String(logging.FieldEventType, "media_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check media_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
				continue
			}
			result.MediaDeleted = append(result.MediaDeleted, path)
		}
	}

	removed, err := d.store.ClearPosted(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.Removed = removed
	return result, nil
}

// PrunePosted applies the configured retention to posted items.
func (d *Daemon) PrunePosted(ctx context.Context) (PruneResult, error) {
	days := d.cfg.Maintenance.PostedRetentionDays
	if days <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	result, err := d.ClearPosted(ctx, cutoff)
	if err != nil {
		return result, err
	}
	if result.Removed > 0 {
		d.logger.Info("pruned posted items",
			logging.Int64("removed", result.Removed),
			logging.Int("media_deleted", len(result.MediaDeleted)),
			logging.Int("retention_days", days),
			logging.String(logging.FieldEventType, "posted_prune"),
		)
	}
	return result, nil
}

func (d *Daemon) startMaintenance(ctx context.Context) {
	if d.cfg.Maintenance.PostedRetentionDays <= 0 {
		return
	}
	d.bg.Add(1)
	go func() {
		defer d.bg.Done()
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()
		for {
			if _, err := d.PrunePosted(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("posted item pruning failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "posted_prune_failed"),
					logging.String(logging.FieldImpact, "posted items retained past retention window"),
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
