package main

import (
	"strings"
	"testing"

	"postline/internal/api"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Session", statusOK, "12 cookies", false)
	if !strings.Contains(plain, "Session:") || !strings.Contains(plain, "[OK] 12 cookies") {
		t.Fatalf("unexpected line %q", plain)
	}
	colored := renderStatusLine("Session", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := map[string]statusKind{
		"ok":      statusOK,
		"WARN":    statusWarn,
		"error":   statusError,
		"info":    statusInfo,
		"unknown": statusInfo,
	}
	for input, want := range cases {
		if got := statusKindFromSeverity(input); got != want {
			t.Fatalf("statusKindFromSeverity(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestBuildQueueStatusRows(t *testing.T) {
	if rows := buildQueueStatusRows(map[string]int{"pending": 0}); rows != nil {
		t.Fatalf("expected nil rows for empty queue, got %v", rows)
	}
	rows := buildQueueStatusRows(map[string]int{"pending": 2, "failed": 1})
	if len(rows) != 4 {
		t.Fatalf("expected one row per state, got %v", rows)
	}
	if rows[0][0] != "Pending" || rows[0][1] != "2" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
}

func TestBuildQueueListRowsFIFO(t *testing.T) {
	items := []api.QueueItem{
		{ID: 2, PayloadRef: "/m/b.mp4", Status: "pending", EnqueuedAt: "2026-01-02T00:00:00Z"},
		{ID: 1, PayloadRef: "/m/a.mp4", Status: "failed", AttemptCount: 3, EnqueuedAt: "2026-01-01T00:00:00Z"},
	}
	rows := buildQueueListRows(items, 2)
	if rows[0][0] != "1" || rows[0][1] != "a.mp4" || rows[0][4] != "3/3" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if rows[1][2] != "(default)" {
		t.Fatalf("expected default caption marker, got %q", rows[1][2])
	}
}
