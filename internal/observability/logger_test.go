package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spangraph/spangraph/internal/config"
)

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	logger := GetLogger()
	require.NotNil(t, logger)
	// Must be safe to use before InitializeLogger runs.
	logger.Debug("fallback logger is usable")
}

func TestInitializeLogger(t *testing.T) {
	InitializeLogger(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "spangraph-test",
	})

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	// Re-initialization is a no-op; the same instance stays installed.
	InitializeLogger(config.LoggerConfig{Level: "error", Format: "console"})
	assert.Same(t, logger, GetLogger())
}
