package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersByLevelAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "routing-server", "warn")

	logger.Info("dropped")
	logger.Warn("kept", slog.String("seller_id", "SELLER001"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["service"] != "routing-server" || entry["seller_id"] != "SELLER001" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
