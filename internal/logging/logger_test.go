// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer and
// restores the previous logger when the test ends.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Info().Msg("dropped")
	Warn().Str("order_id", "DON1").Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"order_id":"DON1"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestInit_Console(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console line")

	out := buf.String()
	if !strings.Contains(out, "console line") {
		t.Errorf("expected console output, got: %s", out)
	}
	if strings.Contains(out, `"message"`) {
		t.Errorf("console output should not be JSON: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLevelShortcuts(t *testing.T) {
	buf := captureGlobal(t)

	Debug().Msg("d")
	Info().Msg("i")
	Warn().Msg("w")
	Error().Msg("e")
	Err(errors.New("boom")).Msg("x")

	out := buf.String()
	for _, want := range []string{`"level":"debug"`, `"level":"info"`, `"level":"warn"`, `"level":"error"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestCtx(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithOrderID(ctx, "DON42")

	Ctx(ctx).Info().Msg("settled")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"correlation_id":"corr-1"`, `"order_id":"DON42"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestCtx_Empty(t *testing.T) {
	buf := captureGlobal(t)

	Ctx(context.Background()).Info().Msg("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("empty context should not add ids: %s", buf.String())
	}
}

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || OrderIDFromContext(ctx) != "" {
		t.Fatal("expected empty ids on bare context")
	}

	ctx = ContextWithNewCorrelationID(ctx)
	if id := CorrelationIDFromContext(ctx); len(id) != 8 {
		t.Errorf("expected 8 character correlation id, got %q", id)
	}
	if GenerateCorrelationID() == GenerateCorrelationID() {
		t.Error("expected distinct correlation ids")
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)

	l := WithComponent("fanout")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"fanout"`) {
		t.Errorf("expected component field: %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	logger.With("service", "receipt-dispatcher").
		WithGroup("msg").
		Info("handled", "uuid", "DON7", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"service":"receipt-dispatcher"`, `"msg.uuid":"DON7"`, `"msg.attempt":2`, `"message":"handled"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
