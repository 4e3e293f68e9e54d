package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/supportops/ticket-triage/internal/config"
)

func TestInitLogger_LevelFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		wantDebugOn bool
	}{
		{name: "default level is info", level: "", wantDebugOn: false},
		{name: "debug level", level: "debug", wantDebugOn: true},
		{name: "unknown level falls back to info", level: "chatty", wantDebugOn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := config.NewEmptyViper()
			if tt.level != "" {
				v.Set("logging.level", tt.level)
			}

			logger, err := InitLogger(config.NewFromViper(v))
			require.NoError(t, err)
			defer logger.Sync()

			assert.Equal(t, tt.wantDebugOn, logger.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestInitConsoleLogger_Verbose(t *testing.T) {
	logger, err := InitConsoleLogger(true, true)
	require.NoError(t, err)
	defer logger.Sync()

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	quiet, err := InitConsoleLogger(false, false)
	require.NoError(t, err)
	defer quiet.Sync()

	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
}
