package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1 << 20
)

// TailOptions controls which lines Tail returns.
// A negative Offset means "the last Limit lines".
type TailOptions struct {
	Offset   int64
	Limit    int
	Follow   bool
	Wait     time.Duration
	ItemID   int64
	MinLevel string
}

// TailResult holds returned lines and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log file at path.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Offset = 0
		return result, nil
	case err != nil:
		return result, fmt.Errorf("stat log file: %w", err)
	case info.IsDir():
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	filter := newLineFilter(opts)

	var lines []string
	offset := opts.Offset
	if offset < 0 {
		lines, offset, err = readAll(path, 0, filter)
		if err == nil && opts.Limit > 0 && len(lines) > opts.Limit {
			lines = lines[len(lines)-opts.Limit:]
		}
		if err == nil && opts.Limit <= 0 {
			lines = nil
		}
	} else {
		if offset > info.Size() {
			offset = info.Size()
		}
		lines, offset, err = readAll(path, offset, filter)
	}
	if err != nil {
		return result, err
	}
	result.Lines, result.Offset = lines, offset
	if len(lines) > 0 || !opts.Follow || opts.Wait == 0 {
		return result, nil
	}
	return waitForLines(ctx, path, offset, opts.Wait, filter)
}

// readAll returns the filtered lines after offset and the end offset.
func readAll(path string, offset int64, filter lineFilter) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// Partial trailing line: leave it for the next read.
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if filter.match(line) {
			lines = append(lines, line)
		}
	}
	return lines, offset, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, filter lineFilter) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := readAll(path, result.Offset, filter)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

type lineFilter struct {
	itemID   int64
	minLevel int
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

func newLineFilter(opts TailOptions) lineFilter {
	f := lineFilter{itemID: opts.ItemID, minLevel: -1}
	if rank, ok := levelRank[strings.ToLower(strings.TrimSpace(opts.MinLevel))]; ok {
		f.minLevel = rank
	}
	return f
}

func (f lineFilter) match(line string) bool {
	if f.itemID == 0 && f.minLevel < 0 {
		return true
	}
	var record struct {
		Level  string `json:"level"`
		ItemID *int64 `json:"item_id"`
	}
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return true
	}
	if f.itemID != 0 && (record.ItemID == nil || *record.ItemID != f.itemID) {
		return false
	}
	if f.minLevel >= 0 {
		rank, ok := levelRank[strings.ToLower(record.Level)]
		if ok && rank < f.minLevel {
			return false
		}
	}
	return true
}
