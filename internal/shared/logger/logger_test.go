package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Level(t *testing.T) {
	l, err := New("capture-worker", "prod", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = New("capture-worker", "prod", "loud")
	assert.Error(t, err)
}

func TestTemporalLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tl := NewTemporal(zap.New(core))

	tl.Info("upserted odds snapshot", "snapshot_id", "close:G1", "existed", false)
	tl.With("workflow_id", "close-capture-G1").Warn("retrying")
	tl.Debug("tick")
	tl.Error("boom", "stage", "upsert")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, "upserted odds snapshot", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "close:G1", fields["snapshot_id"])
	assert.Equal(t, false, fields["existed"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "close-capture-G1", entries[1].ContextMap()["workflow_id"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "upsert", entries[3].ContextMap()["stage"])
}
