package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.name); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Output: &buf})

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line should be filtered: %q", buf.String())
	}

	logger.Info("take finalized", slog.Int("take_id", 3))
	entry := decodeLine(t, &buf)

	if entry["msg"] != "take finalized" || entry["take_id"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}
	ts, _ := entry["time"].(string)
	if len(ts) != len("2006-01-02 15:04:05") {
		t.Errorf("time not reformatted: %q", ts)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Format: "text", Output: &buf}).Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestErrorAttr(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		New(Options{Output: &buf}).Error("failed", slog.Any("error", errors.New("boom")))

		entry := decodeLine(t, &buf)
		if entry["error"] != "boom" {
			t.Errorf("error = %v, want boom", entry["error"])
		}
	})

	t.Run("error with stack", func(t *testing.T) {
		var buf bytes.Buffer
		New(Options{Output: &buf}).Error("failed", slog.Any("error", xerrors.New("boom")))

		entry := decodeLine(t, &buf)
		group, ok := entry["error"].(map[string]any)
		if !ok {
			t.Fatalf("expected error group, got %T", entry["error"])
		}
		if group["msg"] != "boom" {
			t.Errorf("msg = %v", group["msg"])
		}
		trace, ok := group["trace"].([]any)
		if !ok || len(trace) == 0 {
			t.Errorf("expected stack trace, got %v", group["trace"])
		}
	})
}

func TestInit_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Init(Options{Output: &buf})
	slog.Info("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Error("Init should install the logger as default")
	}
}
