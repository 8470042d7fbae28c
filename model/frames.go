package model

import (
	"encoding/base64"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Inbound and outbound event tags.
const (
	EventMedia       = "media"
	EventStop        = "stop"
	EventConnected   = "connected"
	EventStart       = "start"
	EventMark        = "mark"
	EventBotResponse = "bot_response"
)

// ErrMissingEvent is returned by DecodeFrame for a frame without an event tag.
var ErrMissingEvent = errors.New("frame has no event")

// AudioChunk represents one decoded audio payload from a single frame.
type AudioChunk []byte

// Batch is one or more chunks concatenated in arrival order.
type Batch []byte

// InboundFrame is a client message on the media socket.
type InboundFrame struct {
	Event string `json:"event"`
	Media struct {
		Payload string `json:"payload"` // base64 audio
	} `json:"media"`
	// Start is only sent by telephony clients.
	Start struct {
		CallSid   string `json:"callSid"`
		StreamSid string `json:"streamSid"`
	} `json:"start"`
}

// OutboundFrame is a reply sent back over the media socket.
type OutboundFrame struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// DecodeFrame parses a raw socket message.
func DecodeFrame(msg []byte) (*InboundFrame, error) {
	var ev InboundFrame
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	if ev.Event == "" {
		return nil, ErrMissingEvent
	}
	return &ev, nil
}

// AudioChunk decodes the base64 media payload.
func (f *InboundFrame) AudioChunk() (AudioChunk, error) {
	chunk, err := base64.StdEncoding.DecodeString(f.Media.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "decode media payload")
	}
	return chunk, nil
}

// NewBotResponse builds the reply frame for a transcript match.
func NewBotResponse(message string) OutboundFrame {
	return OutboundFrame{Event: EventBotResponse, Message: message}
}

// Encode serializes the frame for the socket.
func (f OutboundFrame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
