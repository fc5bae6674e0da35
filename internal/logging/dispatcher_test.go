package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/gridclash/arena/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *DispatcherLogger)
		level string
		want  map[string]any
	}{
		{
			name:  "debug",
			log:   func(l *DispatcherLogger) { l.Debug("event queued", "command", ":ACTION:", "queued", 3) },
			level: "DEBUG",
			want:  map[string]any{"command": ":ACTION:", "queued": float64(3)},
		},
		{
			name:  "info",
			log:   func(l *DispatcherLogger) { l.Info("handler registered", "command", ":REGISTER:") },
			level: "INFO",
			want:  map[string]any{"command": ":REGISTER:"},
		},
		{
			name:  "error",
			log:   func(l *DispatcherLogger) { l.Error("handler failed", "command", ":REGISTER:", "error", "duplicate player") },
			level: "ERROR",
			want:  map[string]any{"error": "duplicate player"},
		},
		{
			name:  "no key values",
			log:   func(l *DispatcherLogger) { l.Info("dispatcher closed") },
			level: "INFO",
			want:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["component"] != "dispatcher" {
				t.Errorf("component = %v, want dispatcher", entry["component"])
			}
			for k, v := range tt.want {
				if entry[k] != v {
					t.Errorf("%s = %v, want %v", k, entry[k], v)
				}
			}
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})))

	l.Debug("event queued")
	l.Info("handler registered")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below error, got %q", buf.String())
	}
	l.Error("handler failed")
	if buf.Len() == 0 {
		t.Fatal("expected the error line")
	}
}
