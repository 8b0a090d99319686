package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when all handlers are nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if got := TeeHandler(nil, inner); got != inner {
		t.Fatal("expected single handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(TeeHandler(info, debug))
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the debug handler")
	}
	logger.Debug("debug only")
	logger.Info("both", "k", "v")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "debug only") {
		t.Fatalf("debug handler missed debug record: %s", debugBuf.String())
	}
	for name, buf := range map[string]*bytes.Buffer{"info": &infoBuf, "debug": &debugBuf} {
		if !strings.Contains(buf.String(), `"k":"v"`) {
			t.Fatalf("%s handler missing attrs: %s", name, buf.String())
		}
	}
}

func TestTeeHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(h).With("component", "scheduler").WithGroup("firing")
	logger.Info("fired", "id", "f-1")

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"component":"scheduler"`) {
			t.Fatalf("expected component attr, got %s", out)
		}
		if !strings.Contains(out, `"firing":{"id":"f-1"}`) {
			t.Fatalf("expected grouped attr, got %s", out)
		}
	}
}
