package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_DefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	logger, err := NewLogger(cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_NoOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = false

	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestLogger_ChildLoggers(t *testing.T) {
	tl := NewTestLogger()

	child := tl.Named("engine").With(zap.String("component", "sweeper"))
	child.Info(context.Background(), "sweep complete", zap.Int("reaped", 3))

	entries := tl.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "engine", entries[0].LoggerName)
	tl.AssertField(t, "sweep complete", "component", "sweeper")
}

func TestLogger_ContextCorrelation(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithSessionID(context.Background(), "b2f6c0de")
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithProgramID(ctx, "wage-subsidy-2023")

	tl.Info(ctx, "request handled")

	tl.AssertField(t, "request handled", "session.id", "b2f6c0de")
	tl.AssertField(t, "request handled", "request.id", "req-123")
	tl.AssertField(t, "request handled", "program.id", "wage-subsidy-2023")
}

func TestLogger_TraceLevelGating(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "wire detail")
	tl.AssertLogged(t, TraceLevel, "wire detail")

	// A logger capped at info drops trace entries.
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(TraceLevel))
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromContext_Fallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)

	// Nop logger: logging must not panic.
	logger.Info(context.Background(), "ignored")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}

func TestWithSessionID_RejectsInvalidIDs(t *testing.T) {
	assert.Panics(t, func() {
		WithSessionID(context.Background(), "")
	})
	assert.Panics(t, func() {
		WithSessionID(context.Background(), "bad id with spaces")
	})
}
