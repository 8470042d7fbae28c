package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrsingh-rishi/voice-relay/call"
	"github.com/mrsingh-rishi/voice-relay/config"
	"github.com/mrsingh-rishi/voice-relay/logging"
	"github.com/mrsingh-rishi/voice-relay/metrics"
	"github.com/mrsingh-rishi/voice-relay/server"
	"github.com/mrsingh-rishi/voice-relay/stt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("voice relay stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := newBackend(ctx, cfg.Transcription)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Warn("closing recognition backend")
		}
	}()

	var m *metrics.Metrics
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(registry)
	}

	manager := call.NewManager(call.Options{
		Backend:      backend,
		StreamConfig: cfg.StreamConfig(),
		MaxChunks:    cfg.Session.MaxChunks,
		DrainTimeout: cfg.Session.DrainTimeout,
		Logger:       log,
		Metrics:      m,
	})

	calls := server.NewTwilioCalls(cfg.Twilio)
	if calls == nil {
		log.Info("twilio not configured, dial-out routes disabled")
	}

	app := server.New(server.Options{
		Config:   cfg,
		Manager:  manager,
		Registry: registry,
		Logger:   log,
		Calls:    calls,
	})

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.WithFields(logrus.Fields{
			"addr":         addr,
			"stt_provider": cfg.Transcription.Provider,
		}).Info("voice relay listening")
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("media sessions still open")
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	return nil
}

func newBackend(ctx context.Context, cfg config.TranscriptionConfig) (stt.Backend, error) {
	switch cfg.Provider {
	case config.ProviderDeepgram:
		return stt.NewDeepgramBackend(cfg.DeepgramAPIKey), nil
	default:
		b, err := stt.NewGoogleBackend(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "google speech client")
		}
		return b, nil
	}
}
