package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
		enabled    zapcore.Level
	}{
		{env: "prod", enabled: zapcore.InfoLevel},
		{env: "local", enabled: zapcore.DebugLevel},
		{env: "dev", level: "warn", enabled: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && l.Core().Enabled(tt.enabled-1) {
				t.Errorf("level %s should be disabled", tt.enabled-1)
			}
		})
	}
}

func TestNewLogger_Test(t *testing.T) {
	l, err := NewLogger("test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("test logger should discard everything")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a no-op logger")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("session_id", "s1"))
	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["session_id"]; got != "s1" {
		t.Errorf("session_id = %v", got)
	}
}
