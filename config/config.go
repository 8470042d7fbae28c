// Package config reads the relay settings from the environment. A .env file
// in the working directory is loaded first when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/pkg/errors"
)

const (
	ProviderGoogle   = "google"
	ProviderDeepgram = "deepgram"
)

type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Transcription TranscriptionConfig
	Session       SessionConfig
	Metrics       MetricsConfig
	Twilio        TwilioConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level  string
	Format string
}

type TranscriptionConfig struct {
	Provider        string
	CredentialsFile string
	DeepgramAPIKey  string
	DeepgramModel   string
	Encoding        string
	SampleRate      int
	LanguageCode    string
	InterimResults  bool
}

type SessionConfig struct {
	MaxChunks    int
	DrainTimeout time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// TwilioConfig enables the dial-out routes when every field is set.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	BaseWSURL  string
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// a missing .env is normal in containers
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := &reader{getenv: getenv}
	cfg := &Config{
		Server: ServerConfig{
			Port: r.getInt("PORT", 5000),
		},
		Log: LogConfig{
			Level:  r.getString("LOG_LEVEL", "info"),
			Format: strings.ToLower(r.getString("LOG_FORMAT", "text")),
		},
		Transcription: TranscriptionConfig{
			Provider:        strings.ToLower(r.getString("STT_PROVIDER", ProviderGoogle)),
			CredentialsFile: r.getString("GOOGLE_APPLICATION_CREDENTIALS", ""),
			DeepgramAPIKey:  r.getString("DEEPGRAM_API_KEY", ""),
			DeepgramModel:   r.getString("DEEPGRAM_MODEL", ""),
			Encoding:        strings.ToLower(r.getString("AUDIO_ENCODING", stt.EncodingLinear16)),
			SampleRate:      r.getInt("SAMPLE_RATE", 8000),
			LanguageCode:    r.getString("LANGUAGE_CODE", "en-IN"),
			InterimResults:  r.getBool("INTERIM_RESULTS", true),
		},
		Session: SessionConfig{
			MaxChunks:    r.getInt("QUEUE_MAX_CHUNKS", 0),
			DrainTimeout: r.getDuration("DRAIN_TIMEOUT", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: r.getBool("METRICS_ENABLED", true),
			Path:    r.getString("METRICS_PATH", "/metrics"),
		},
		Twilio: TwilioConfig{
			AccountSID: r.getString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  r.getString("TWILIO_AUTH_TOKEN", ""),
			FromNumber: r.getString("TWILIO_FROM_NUMBER", ""),
			BaseURL:    r.getString("BASE_URL", ""),
			BaseWSURL:  r.getString("BASE_WS_URL", ""),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return errors.Wrap(err, "server config")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log config")
	}
	if err := c.Transcription.Validate(); err != nil {
		return errors.Wrap(err, "transcription config")
	}
	if err := c.Session.Validate(); err != nil {
		return errors.Wrap(err, "session config")
	}
	if err := c.Metrics.Validate(); err != nil {
		return errors.Wrap(err, "metrics config")
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.Errorf("PORT must be between 1 and 65535, got %d", s.Port)
	}
	return nil
}

func (l *LogConfig) Validate() error {
	switch l.Format {
	case "text", "json":
		return nil
	}
	return errors.Errorf("LOG_FORMAT must be text or json, got %q", l.Format)
}

func (t *TranscriptionConfig) Validate() error {
	switch t.Provider {
	case ProviderGoogle:
	case ProviderDeepgram:
		if t.DeepgramAPIKey == "" {
			return errors.New("DEEPGRAM_API_KEY must be set for the deepgram provider")
		}
	default:
		return errors.Errorf("STT_PROVIDER must be google or deepgram, got %q", t.Provider)
	}
	if t.Encoding != stt.EncodingLinear16 && t.Encoding != stt.EncodingMulaw {
		return errors.Errorf("AUDIO_ENCODING must be linear16 or mulaw, got %q", t.Encoding)
	}
	if t.SampleRate < 8000 || t.SampleRate > 48000 {
		return errors.Errorf("SAMPLE_RATE must be between 8000 and 48000, got %d", t.SampleRate)
	}
	if t.LanguageCode == "" {
		return errors.New("LANGUAGE_CODE cannot be empty")
	}
	return nil
}

func (s *SessionConfig) Validate() error {
	if s.MaxChunks < 0 {
		return errors.Errorf("QUEUE_MAX_CHUNKS cannot be negative, got %d", s.MaxChunks)
	}
	if s.DrainTimeout <= 0 {
		return errors.Errorf("DRAIN_TIMEOUT must be positive, got %s", s.DrainTimeout)
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return errors.Errorf("METRICS_PATH must start with /, got %q", m.Path)
	}
	return nil
}

// Enabled reports whether dial-out calls can be placed.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != "" &&
		t.BaseURL != "" && t.BaseWSURL != ""
}

// StreamConfig is the recognition setup sent at the start of every session.
func (c *Config) StreamConfig() stt.StreamConfig {
	sc := stt.StreamConfig{
		SampleRate:     c.Transcription.SampleRate,
		Encoding:       c.Transcription.Encoding,
		LanguageCode:   c.Transcription.LanguageCode,
		InterimResults: c.Transcription.InterimResults,
	}
	if c.Transcription.Provider == ProviderDeepgram {
		sc.Model = c.Transcription.DeepgramModel
	}
	return sc
}

// reader keeps the first parse error so FromEnv can report it once.
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) getString(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) getInt(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return n
}

func (r *reader) getBool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return b
}

func (r *reader) getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return d
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
