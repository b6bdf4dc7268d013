package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsPropagate(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "assemble-sky-models"})

	log.Debug("parameter dropped", map[string]interface{}{"field": "Foo"})
	log.Info("target resolved", nil)

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "assemble-sky-models", entries[0].ContextMap()["taskType"])
	assert.Equal(t, "Foo", entries[0].ContextMap()["field"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level    string
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "json")
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.disabled))
		})
	}
}

func TestOrNoOp(t *testing.T) {
	assert.NotNil(t, OrNoOp(nil))

	l := NewTestLogger(t)
	assert.Same(t, l, OrNoOp(l))
}
