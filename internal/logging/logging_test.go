package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Levels(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, Config(false).Level.Level())
	assert.Equal(t, zapcore.DebugLevel, Config(true).Level.Level())
}

func TestConfig_WritesToStderr(t *testing.T) {
	cfg := Config(false)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.Equal(t, "console", cfg.Encoding)
}

func TestSetup_ReplacesGlobal(t *testing.T) {
	before := zap.L()

	cleanup, err := Setup(true)
	require.NoError(t, err)

	assert.NotSame(t, before, zap.L())
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	cleanup()
	assert.Same(t, before, zap.L())
}
