package telemetry

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmptyPathDiscards(t *testing.T) {
	l, err := NewLogger(Options{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Info("journey.load", map[string]any{"levels": 3})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "edujourney.log")
	l, err := NewLogger(Options{Path: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Info("lesson.complete", map[string]any{"level_id": "4", "bodies": 3})
	l.Debug("lesson.tick", nil)
	l.Error("api.request_failed", map[string]any{"error": errors.New("boom")})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("invalid json line %q: %v", sc.Text(), err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("expected debug to be filtered, got %d lines", len(lines))
	}
	if lines[0]["msg"] != "lesson.complete" || lines[0]["level"] != "info" {
		t.Fatalf("unexpected first line %#v", lines[0])
	}
	if lines[1]["error"] != "boom" {
		t.Fatalf("expected error field, got %#v", lines[1])
	}
}

func TestNewZapForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZap(zap.New(core))
	l.Warn("api.fallback", map[string]any{"from": "/api/subjects"})
	entries := logs.FilterMessage("api.fallback").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["from"] != "/api/subjects" {
		t.Fatalf("unexpected context %#v", entries[0].ContextMap())
	}
}
