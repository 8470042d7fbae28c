package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("DEBUG", "text").GetLevel())
	assert.Equal(t, logrus.WarnLevel, NewLogger("warn", "json").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("chatty", "text").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("", "text").GetLevel())
}

func TestJSONOutputHasSource(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("info", "json", &buf)

	logger.WithField("session_id", "abc").Info("media session connected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "media session connected", entry["msg"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.Contains(t, entry["source"], "logging_test.go:")
	assert.NotContains(t, entry, "func")
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("info", "text", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=visible")
	assert.Contains(t, buf.String(), "source=")
}
