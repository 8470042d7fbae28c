// Package server exposes the relay over HTTP: a liveness route, the media
// websocket, status and metrics, and optional telephone dial-out.
package server

import (
	"io"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	rr "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/mrsingh-rishi/voice-relay/call"
	"github.com/mrsingh-rishi/voice-relay/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// LivenessBody is returned by GET /.
const LivenessBody = "Voice relay is running"

type Options struct {
	Config  *config.Config
	Manager *call.Manager
	// Registry receives the HTTP request metrics; required when metrics are enabled.
	Registry *prometheus.Registry
	Logger   logrus.FieldLogger
	// Calls places dial-out calls; the /call and /twiml routes are only
	// registered when it is set.
	Calls CallCreator
}

type router struct {
	app  *fiber.App
	opts Options
}

func New(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		AppName:               "voice-relay",
		DisableStartupMessage: true,
	})

	app.Use(logger.New(logger.Config{
		Done: func(c *fiber.Ctx, logString []byte) {
			opts.Logger.Debug(string(logString))
		},
		Format: "${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}",
		Output: io.Discard,
	}))

	if opts.Config.Metrics.Enabled && opts.Registry != nil {
		prom := fiberprometheus.NewWithRegistry(opts.Registry, "voice-relay", "voice_relay", "http", nil)
		prom.RegisterAt(app, opts.Config.Metrics.Path)
		app.Use(prom.Middleware)
	}

	app.Use(rr.New())

	r := &router{app: app, opts: opts}
	r.registerBaseRoutes()
	r.registerMediaRoutes()
	if opts.Calls != nil {
		r.registerDialOutRoutes()
	}

	return app
}

func (r *router) registerBaseRoutes() {
	r.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(LivenessBody)
	})

	r.app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"active_sessions": r.opts.Manager.ActiveCount(),
		})
	})
}

func (r *router) registerMediaRoutes() {
	r.app.Use("/media", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.app.Get("/media", websocket.New(func(ws *websocket.Conn) {
		if err := r.opts.Manager.Serve(ws); err != nil {
			r.opts.Logger.WithError(err).Debug("media session returned error")
		}
	}))
}
