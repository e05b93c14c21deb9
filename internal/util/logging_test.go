package util

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevels(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, want := range cases {
		logger, err := InitLogger(in)
		if err != nil {
			t.Fatalf("InitLogger(%q): %v", in, err)
		}
		if !logger.Core().Enabled(want) || (want > zapcore.DebugLevel && logger.Core().Enabled(want-1)) {
			t.Fatalf("InitLogger(%q) did not set level %s", in, want)
		}
		if zap.L() != logger {
			t.Fatalf("InitLogger(%q) did not replace globals", in)
		}
	}
}

func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	if LoggerFromContext(context.Background()) != zap.L() {
		t.Fatal("expected global logger")
	}
	custom := zap.NewNop()
	if LoggerFromContext(ContextWithLogger(context.Background(), custom)) != custom {
		t.Fatal("expected logger from context")
	}
}
