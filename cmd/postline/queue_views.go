package main

import (
	"fmt"
	"strings"

	"postline/internal/api"
	"postline/internal/queue"
)

const captionPreviewRunes = 40

func buildQueueStatusRows(stats map[string]int) [][]string {
	total := 0
	for _, count := range stats {
		total += count
	}
	if total == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		rows = append(rows, []string{formatStatusLabel(string(status)), fmt.Sprintf("%d", stats[string(status)])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem, maxRetry int) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := api.SortQueueItemsFIFO(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		name := strings.TrimSpace(item.PayloadName)
		if name == "" {
			name = api.PayloadName(item.PayloadRef)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			name,
			api.CaptionPreview(item, captionPreviewRunes),
			formatStatusLabel(item.Status),
			api.AttemptLabel(item, maxRetry),
			formatDisplayTime(item.EnqueuedAt),
		})
	}
	return rows
}

func queueItemFields(item api.QueueItem, maxRetry int) [][2]string {
	return [][2]string{
		{"ID", fmt.Sprintf("%d", item.ID)},
		{"Status", formatStatusLabel(item.Status)},
		{"File", item.PayloadRef},
		{"Caption", api.CaptionPreview(item, 0)},
		{"Source", item.Source},
		{"Attempts", api.AttemptLabel(item, maxRetry)},
		{"Last Error", item.ErrorMessage},
		{"Enqueued", formatDisplayTime(item.EnqueuedAt)},
		{"Updated", formatDisplayTime(item.UpdatedAt)},
		{"Posted", formatDisplayTime(item.PostedAt)},
		{"Heartbeat", formatDisplayTime(item.LastHeartbeat)},
	}
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseQueueTime(value); !t.IsZero() {
		return t.Local().Format("2006-01-02 15:04")
	}
	return value
}
