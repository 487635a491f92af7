package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"INFO", zapcore.InfoLevel, true},
		{" warn ", zapcore.WarnLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"", zapcore.InfoLevel, false},
		{"verbose", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamedAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var l Logger = &loggerImpl{base: zap.New(core)}

	l.Named("pipeline").With(String("store", "memory")).Info("started", Int("limit", 50))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		e := entries[0]
		assert.Equal(t, "pipeline", e.LoggerName)
		assert.Equal(t, "started", e.Message)
		ctx := e.ContextMap()
		assert.Equal(t, "memory", ctx["store"])
		assert.EqualValues(t, 50, ctx["limit"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Named("x").With(Bool("b", true)).Error("ignored", Error(assert.AnError))
	assert.NoError(t, l.Sync())
}
