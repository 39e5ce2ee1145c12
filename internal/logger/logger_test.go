package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fd1az/swap-router/internal/logger"
)

func TestLogger_WritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelDebug, "swap-router", nil)

	log.Info(context.Background(), "quote received", "venue", "Uniswap V2", "amount_out", 42, "error", errors.New("boom"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json line %q: %v", buf.String(), err)
	}

	if line["message"] != "quote received" {
		t.Errorf("unexpected message: %v", line["message"])
	}
	if line["service"] != "swap-router" {
		t.Errorf("unexpected service: %v", line["service"])
	}
	if line["venue"] != "Uniswap V2" {
		t.Errorf("unexpected venue: %v", line["venue"])
	}
	if line["error"] != "boom" {
		t.Errorf("unexpected error field: %v", line["error"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelWarn, "swap-router", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn line")
	}
}

func TestLogger_TraceIDFn(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "swap-router", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "traced")

	if !bytes.Contains(buf.Bytes(), []byte(`"trace_id":"abc123"`)) {
		t.Errorf("expected trace id in %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.Level{
		"debug":   logger.LevelDebug,
		"WARN":    logger.LevelWarn,
		"error":   logger.LevelError,
		"":        logger.LevelInfo,
		"verbose": logger.LevelInfo,
	}
	for in, want := range tests {
		if got := logger.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
