package api

import (
	"fmt"
	"strings"

	"postline/internal/caption"
)

// CaptionPreview returns a single-line caption shortened to limit runes.
func CaptionPreview(item QueueItem, limit int) string {
	text := strings.Join(strings.Fields(item.Caption), " ")
	if text == "" {
		return "(default)"
	}
	if limit <= 0 {
		return text
	}
	short := caption.Truncate(text, limit)
	if short != text && limit > 1 {
		short = caption.Truncate(text, limit-1) + "…"
	}
	return short
}

// AttemptLabel renders retry accounting as "n/max" where max is the total
// number of attempts an item is allowed.
func AttemptLabel(item QueueItem, maxRetry int) string {
	if maxRetry < 0 {
		maxRetry = 0
	}
	return fmt.Sprintf("%d/%d", item.AttemptCount, maxRetry+1)
}
