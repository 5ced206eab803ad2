package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Debug("hello", String("k", "v"))
}

func TestFromZap_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(String("component", "test"))

	l.Warn("tier failed", Error(errors.New("boom")), Int("tier", 2))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "tier failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, int64(2), fields["tier"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	assert.NoError(t, l.With(String("a", "b")).Sync())
}
