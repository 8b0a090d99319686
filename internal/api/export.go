package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"id", "status", "attempt_count", "payload_ref", "caption", "source",
	"error_message", "enqueued_at", "updated_at", "posted_at",
}

// WriteQueueCSV writes items as CSV with a header row.
func WriteQueueCSV(w io.Writer, items []QueueItem) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range items {
		record := []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			strconv.Itoa(item.AttemptCount),
			item.PayloadRef,
			item.Caption,
			item.Source,
			item.ErrorMessage,
			item.EnqueuedAt,
			item.UpdatedAt,
			item.PostedAt,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", item.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
