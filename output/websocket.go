package output

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/mrsingh-rishi/voice-relay/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MessageWriter is the write half of a websocket connection.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebsocketOutput writes bot responses back to the client.
type WebsocketOutput struct {
	ws  MessageWriter
	log logrus.FieldLogger

	mu   sync.Mutex
	sent int
}

func NewWebsocketOutput(ws MessageWriter, log logrus.FieldLogger) (*WebsocketOutput, error) {
	if ws == nil {
		return nil, errors.New("websocket connection is required")
	}
	return &WebsocketOutput{ws: ws, log: log}, nil
}

// SendReply writes one bot_response frame. Writes are serialized.
func (o *WebsocketOutput) SendReply(message string) error {
	payload, err := model.NewBotResponse(message).Encode()
	if err != nil {
		return errors.Wrap(err, "encode bot response")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "write bot response")
	}
	o.sent++
	o.log.WithField("message", message).Debug("bot response sent")
	return nil
}

// Sent returns how many replies were written.
func (o *WebsocketOutput) Sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent
}
