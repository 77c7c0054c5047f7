package config

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLogLevel(t *testing.T) {
	defer func(l string) { LogLevel = l }(LogLevel)

	LogLevel = "DEBUG"
	require.NoError(t, ValidateLogLevel())
	assert.Equal(t, DEBUG, LogLevel)
	assert.True(t, IsLogLevelDebugOrBelow())

	LogLevel = "verbose"
	assert.ErrorContains(t, ValidateLogLevel(), "invalid log level: verbose")
}

func TestApplyLogLevel(t *testing.T) {
	defer func(l string, lv log.Level) { LogLevel = l; log.SetLevel(lv) }(LogLevel, log.GetLevel())

	LogLevel = WARN
	require.NoError(t, ApplyLogLevel())
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.False(t, IsLogLevelDebugOrBelow())
}
