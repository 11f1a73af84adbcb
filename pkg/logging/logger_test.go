package logging

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/steemit/discussion/pkg/config"
)

func TestInitLogger(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	tests := []struct {
		name  string
		cfg   config.LoggingConfig
		level zapcore.Level
	}{
		{"json info", config.LoggingConfig{Level: "INFO", Format: "json"}, zapcore.InfoLevel},
		{"text debug", config.LoggingConfig{Level: "debug", Format: "text"}, zapcore.DebugLevel},
		{"invalid level falls back to info", config.LoggingConfig{Level: "loud", Format: "json"}, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitLogger(&tt.cfg); err != nil {
				t.Fatalf("Failed to initialize logger: %v", err)
			}
			if !Logger.Core().Enabled(tt.level) {
				t.Errorf("expected level %v to be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && Logger.Core().Enabled(zapcore.DebugLevel) {
				t.Errorf("expected debug to be disabled at level %v", tt.level)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	core, logs := observer.New(zapcore.InfoLevel)
	Logger = zap.New(core)

	WithComponent("flag-workflow").Info("flag escalated", zap.Int64("comment_id", 7))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "flag-workflow" {
		t.Errorf("component = %v, want flag-workflow", fields["component"])
	}
	if fields["comment_id"] != int64(7) {
		t.Errorf("comment_id = %v, want 7", fields["comment_id"])
	}
}

func TestTraceFields(t *testing.T) {
	if fields := TraceFields(context.Background()); fields != nil {
		t.Errorf("TraceFields() without span = %v, want nil", fields)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := TraceFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("TraceFields() returned %d fields, want 2", len(fields))
	}
	if fields[0].String != sc.TraceID().String() {
		t.Errorf("trace_id = %v, want %v", fields[0].String, sc.TraceID().String())
	}
}
