package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "bookings", Level: "DEBUG"})

	log.Debug("reservation claimed", "resource_key", "room:h1:r1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "bookings" {
		t.Errorf("expected service attr, got %v", entry["service"])
	}
	if entry["resource_key"] != "room:h1:r1" {
		t.Errorf("expected resource_key attr, got %v", entry["resource_key"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Output: &buf, Format: "TEXT"}).Info("sweep finished", "released", 3)

	out := buf.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "released=3") {
		t.Errorf("expected logfmt output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"info+2":  slog.LevelInfo + 2,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).With("booking_id", "b1")
	log.Info("cancelled")

	if !bytes.Contains(buf.Bytes(), []byte(`"booking_id":"b1"`)) {
		t.Errorf("expected child attrs in output, got %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	fallback := Discard()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("empty context should yield the fallback")
	}

	scoped := fallback.With("request_id", "r-1")
	ctx := IntoContext(context.Background(), scoped)
	if got := FromContext(ctx, fallback); got != scoped {
		t.Error("expected the request-scoped logger")
	}
}
