package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLogger(t *testing.T) {
	for _, lvl := range []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, " Info "} {
		l, err := GetLogger(lvl)
		require.NoError(t, err)
		require.NotNil(t, l)
	}

	l, err := GetLogger(LogLevelWarn)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	for _, lvl := range []string{LogLevelNone, ""} {
		l, err = GetLogger(lvl)
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
	}

	_, err = GetLogger("verbose")
	require.ErrorIs(t, err, ErrInvalidLevel)

	assert.Panics(t, func() { _ = MustGetLogger("verbose") })
	assert.Len(t, Levels(), 5)
}
