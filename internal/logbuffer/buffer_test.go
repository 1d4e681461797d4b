/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logbuffer

import (
	"testing"
	"time"
)

func TestBufferWrapsAround(t *testing.T) {
	buf := New(3)
	for i, msg := range []string{"one", "two", "three", "four"} {
		buf.Add(LogEntry{Message: msg, Level: "info", Timestamp: time.Unix(int64(i), 0)})
	}

	all := buf.GetAll()
	if len(all) != 3 {
		t.Fatalf("entries = %d, want capacity 3", len(all))
	}
	if all[0].Message != "two" || all[2].Message != "four" {
		t.Fatalf("entries = %v, want oldest evicted, chronological order", all)
	}
}

func TestBufferQueryFilters(t *testing.T) {
	buf := New(10)
	base := time.Now()
	buf.Add(LogEntry{Message: "cache miss", Level: "debug", Component: "gateway", Timestamp: base})
	buf.Add(LogEntry{Message: "request served", Level: "info", Component: "api", Timestamp: base.Add(time.Second)})
	buf.Add(LogEntry{Message: "db write failed", Level: "error", Component: "library", Timestamp: base.Add(2 * time.Second)})

	if got := buf.Query(QueryParams{Level: "error"}); len(got) != 1 || got[0].Component != "library" {
		t.Fatalf("level filter = %v, want one library error", got)
	}
	if got := buf.Query(QueryParams{Component: "api"}); len(got) != 1 {
		t.Fatalf("component filter = %v, want one api entry", got)
	}
	if got := buf.Query(QueryParams{Search: "CACHE"}); len(got) != 1 {
		t.Fatalf("search filter = %v, want case-insensitive match", got)
	}
	if got := buf.Query(QueryParams{Since: base.Add(time.Second)}); len(got) != 2 {
		t.Fatalf("since filter = %v, want two entries", got)
	}

	desc := buf.Query(QueryParams{Descending: true, Limit: 2})
	if len(desc) != 2 || desc[0].Message != "db write failed" {
		t.Fatalf("descending query = %v, want newest first, limited", desc)
	}
}

func TestWriterCapturesJSONLines(t *testing.T) {
	buf := New(10)
	w := NewWriter(buf, nil)

	line := []byte(`{"level":"info","message":"songs fetched from library","component":"gateway","count":4,"time":"2026-08-30T12:00:00Z"}`)
	if _, err := w.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Non-JSON lines pass through without capture.
	if _, err := w.Write([]byte("plain text line")); err != nil {
		t.Fatalf("write plain: %v", err)
	}

	all := buf.GetAll()
	if len(all) != 1 {
		t.Fatalf("captured = %d, want only the JSON line", len(all))
	}
	entry := all[0]
	if entry.Level != "info" || entry.Component != "gateway" {
		t.Fatalf("entry = %+v, want parsed level and component", entry)
	}
	if entry.Fields["count"] != float64(4) {
		t.Fatalf("fields = %v, want count preserved", entry.Fields)
	}
	if _, ok := entry.Fields["time"]; ok {
		t.Fatal("time field is consumed, not duplicated")
	}
}

func TestStatsAndClear(t *testing.T) {
	buf := New(5)
	buf.Add(LogEntry{Level: "info"})
	buf.Add(LogEntry{Level: "info"})
	buf.Add(LogEntry{Level: "error"})

	stats := buf.Stats()
	if stats.Count != 3 || stats.LevelCount["info"] != 2 || stats.LevelCount["error"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	buf.Clear()
	if got := buf.Stats(); got.Count != 0 {
		t.Fatalf("count after clear = %d, want 0", got.Count)
	}
}
