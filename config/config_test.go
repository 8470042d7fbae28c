package config

import (
	"testing"
	"time"

	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ProviderGoogle, cfg.Transcription.Provider)
	assert.Equal(t, 8000, cfg.Transcription.SampleRate)
	assert.Equal(t, "en-IN", cfg.Transcription.LanguageCode)
	assert.True(t, cfg.Transcription.InterimResults)
	assert.Equal(t, 0, cfg.Session.MaxChunks)
	assert.Equal(t, 10*time.Second, cfg.Session.DrainTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Twilio.Enabled())

	assert.Equal(t, stt.StreamConfig{
		SampleRate:     8000,
		Encoding:       stt.EncodingLinear16,
		LanguageCode:   "en-IN",
		InterimResults: true,
	}, cfg.StreamConfig())
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":               "8080",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "JSON",
		"STT_PROVIDER":       "Deepgram",
		"DEEPGRAM_API_KEY":   "dg-key",
		"DEEPGRAM_MODEL":     "nova-2",
		"SAMPLE_RATE":        "16000",
		"AUDIO_ENCODING":     "MULAW",
		"LANGUAGE_CODE":      "en-US",
		"INTERIM_RESULTS":    "false",
		"QUEUE_MAX_CHUNKS":   "500",
		"DRAIN_TIMEOUT":      "3s",
		"METRICS_ENABLED":    "false",
		"TWILIO_ACCOUNT_SID": "AC1",
		"TWILIO_AUTH_TOKEN":  "secret",
		"TWILIO_FROM_NUMBER": "+15550001111",
		"BASE_URL":           "https://relay.example.com/",
		"BASE_WS_URL":        "wss://relay.example.com/",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ProviderDeepgram, cfg.Transcription.Provider)
	assert.Equal(t, "dg-key", cfg.Transcription.DeepgramAPIKey)
	assert.False(t, cfg.Transcription.InterimResults)
	assert.Equal(t, 500, cfg.Session.MaxChunks)
	assert.Equal(t, 3*time.Second, cfg.Session.DrainTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Twilio.Enabled())

	sc := cfg.StreamConfig()
	assert.Equal(t, 16000, sc.SampleRate)
	assert.Equal(t, "en-US", sc.LanguageCode)
	assert.Equal(t, "nova-2", sc.Model)
	assert.Equal(t, stt.EncodingMulaw, sc.Encoding)
}

func TestModelOnlyForDeepgram(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"DEEPGRAM_MODEL": "nova-2"}))
	require.NoError(t, err)
	assert.Empty(t, cfg.StreamConfig().Model)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"bad port", map[string]string{"PORT": "0"}, "PORT"},
		{"port not a number", map[string]string{"PORT": "abc"}, "parse PORT"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"unknown provider", map[string]string{"STT_PROVIDER": "whisper"}, "STT_PROVIDER"},
		{"deepgram without key", map[string]string{"STT_PROVIDER": "deepgram"}, "DEEPGRAM_API_KEY"},
		{"bad encoding", map[string]string{"AUDIO_ENCODING": "opus"}, "AUDIO_ENCODING"},
		{"sample rate", map[string]string{"SAMPLE_RATE": "4000"}, "SAMPLE_RATE"},
		{"negative queue", map[string]string{"QUEUE_MAX_CHUNKS": "-1"}, "QUEUE_MAX_CHUNKS"},
		{"bad duration", map[string]string{"DRAIN_TIMEOUT": "soon"}, "parse DRAIN_TIMEOUT"},
		{"zero duration", map[string]string{"DRAIN_TIMEOUT": "0s"}, "DRAIN_TIMEOUT"},
		{"bad bool", map[string]string{"INTERIM_RESULTS": "maybe"}, "parse INTERIM_RESULTS"},
		{"metrics path", map[string]string{"METRICS_PATH": "metrics"}, "METRICS_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTwilioPartiallyConfigured(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"TWILIO_ACCOUNT_SID": "AC1",
		"TWILIO_AUTH_TOKEN":  "secret",
	}))
	require.NoError(t, err)
	assert.False(t, cfg.Twilio.Enabled())
}
