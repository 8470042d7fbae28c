package server

import (
	"fmt"
	"html"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mrsingh-rishi/voice-relay/config"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallCreator places outbound calls. The Twilio REST client's Api service
// satisfies it.
type CallCreator interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
}

// NewTwilioCalls returns a CallCreator for cfg, or nil when dial-out is not
// configured.
func NewTwilioCalls(cfg config.TwilioConfig) CallCreator {
	if !cfg.Enabled() {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return client.Api
}

type callRequest struct {
	To string `json:"to"`
}

type callResponse struct {
	SID     string `json:"sid,omitempty"`
	Message string `json:"message"`
}

func (r *router) registerDialOutRoutes() {
	tw := r.opts.Config.Twilio

	// POST /call starts an outbound call whose TwiML streams into /media
	r.app.Post("/call", func(c *fiber.Ctx) error {
		var req callRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.To == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`to` field is required"})
		}

		params := &openapi.CreateCallParams{}
		params.SetTo(req.To)
		params.SetFrom(tw.FromNumber)
		params.SetUrl(joinURL(tw.BaseURL, "twiml"))
		params.SetMethod("GET")

		resp, err := r.opts.Calls.CreateCall(params)
		if err != nil {
			r.opts.Logger.WithError(err).WithField("to", req.To).Error("twilio create call failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create call"})
		}

		out := callResponse{Message: "call initiated"}
		if resp != nil && resp.Sid != nil {
			out.SID = *resp.Sid
		}
		r.opts.Logger.WithField("call_sid", out.SID).Info("outbound call created")
		return c.JSON(out)
	})

	r.app.Get("/twiml", func(c *fiber.Ctx) error {
		callSid := c.Query("CallSid", "")
		if callSid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CallSid missing"})
		}

		streamURL := joinURL(tw.BaseWSURL, "media") + "?CallSid=" + callSid
		xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Connect>
    <Stream url="%s" bidirectional="true"/>
  </Connect>
</Response>`, html.EscapeString(streamURL))

		c.Type("xml")
		return c.SendString(xml)
	})
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + path
}
