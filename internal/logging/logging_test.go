package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()

	ConfigureLogger(logger, "debug", "json", &buf)
	logger.WithField("skill", "pdf").Debug("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "pdf", entry["skill"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigureLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()

	ConfigureLogger(logger, "chatty", "text", &buf)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}
