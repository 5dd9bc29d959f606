package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	cfg := NewDefaultConfig()
	cfg.Format = "console"
	cfg.Level = "debug"
	logger, err = NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithScheduleID(ctx, 42)

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "request.id", fields[0].Key)
	assert.Equal(t, "schedule.id", fields[1].Key)

	id, ok := ScheduleIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(42), id)
}

func TestTestLoggerObserves(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("transcription dispatched")
	tl.AssertLogged(t, zapcore.InfoLevel, "dispatched")
	assert.Equal(t, 1, tl.FilterMessage("transcription dispatched").Len())
}
