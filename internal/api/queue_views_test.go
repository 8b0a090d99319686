package api

import (
	"bytes"
	"encoding/csv"
	"testing"
)

func TestSortQueueItemsFIFO(t *testing.T) {
	items := []QueueItem{
		{ID: 3, EnqueuedAt: "2026-04-02T00:00:02.000Z"},
		{ID: 2, EnqueuedAt: "2026-04-02T00:00:01.000Z"},
		{ID: 1, EnqueuedAt: "2026-04-02T00:00:01.000Z"},
	}
	sorted := SortQueueItemsFIFO(items)
	if sorted[0].ID != 1 || sorted[1].ID != 2 || sorted[2].ID != 3 {
		t.Fatalf("unexpected order: %v %v %v", sorted[0].ID, sorted[1].ID, sorted[2].ID)
	}
	if items[0].ID != 3 {
		t.Fatal("input slice should not be modified")
	}
}

func TestCaptionPreview(t *testing.T) {
	if got := CaptionPreview(QueueItem{}, 10); got != "(default)" {
		t.Fatalf("empty caption preview = %q", got)
	}
	if got := CaptionPreview(QueueItem{Caption: "line one\nline two"}, 0); got != "line one line two" {
		t.Fatalf("flattened preview = %q", got)
	}
	if got := CaptionPreview(QueueItem{Caption: "abcdefghij"}, 5); got != "abcd…" {
		t.Fatalf("truncated preview = %q", got)
	}
}

func TestAttemptLabel(t *testing.T) {
	if got := AttemptLabel(QueueItem{AttemptCount: 1}, 1); got != "1/2" {
		t.Fatalf("label = %q", got)
	}
}

func TestWriteQueueCSV(t *testing.T) {
	var buf bytes.Buffer
	items := []QueueItem{{ID: 1, Status: "pending", PayloadRef: "/m/a.mp4", Caption: "hi, \"there\""}}
	if err := WriteQueueCSV(&buf, items); err != nil {
		t.Fatalf("WriteQueueCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0][0] != "id" || records[1][4] != "hi, \"there\"" {
		t.Fatalf("unexpected records: %#v", records)
	}
}
