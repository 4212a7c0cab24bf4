package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerEmitsServiceTag(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "ocr-worker", "info")

	logger.Info("document processed", "document_id", "doc-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if entry["service"] != "ocr-worker" {
		t.Fatalf("expected service tag, got %v", entry["service"])
	}
	if entry["document_id"] != "doc-1" {
		t.Fatalf("expected document_id attr, got %v", entry["document_id"])
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "ocr-worker", "error")

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at error level, got %q", buf.String())
	}
	logger.Error("kept")
	if buf.Len() == 0 {
		t.Fatal("error entries must pass")
	}
}
