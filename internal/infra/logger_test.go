package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("fundraiser_id", "abc").Msg("donation accepted")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "donation accepted" {
		t.Fatalf("message mismatch: %v", line["message"])
	}
	if line["service"] != "fundraiser" {
		t.Fatalf("service field mismatch: %v", line["service"])
	}
}

func TestNewLoggerDevelopmentLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("development", &buf)
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level mismatch: got %s want debug", logger.GetLevel())
	}
}
