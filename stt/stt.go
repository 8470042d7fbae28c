// Package stt adapts streaming speech-recognition services to a common
// bidirectional stream: audio batches go in, transcript results come out.
package stt

//go:generate mockgen -destination=mocks/mock_stt.go -package=mocks github.com/mrsingh-rishi/voice-relay/stt Backend,Stream

import (
	"context"

	"github.com/mrsingh-rishi/voice-relay/types"
)

// Audio encodings accepted by the backends.
const (
	// EncodingLinear16 is 16-bit little-endian PCM.
	EncodingLinear16 = "linear16"
	// EncodingMulaw is 8-bit G.711 mu-law, as sent by telephone media streams.
	EncodingMulaw = "mulaw"
)

// StreamConfig is sent once when a recognition stream opens.
type StreamConfig struct {
	SampleRate     int
	Encoding       string
	LanguageCode   string
	InterimResults bool
	Model          string
}

// Backend opens recognition streams. One Backend is shared by all sessions.
type Backend interface {
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
	Close() error
}

// Stream is one live recognition exchange.
//
// Send and CloseSend are called from one goroutine, Recv from another.
// Recv returns io.EOF once the backend has delivered its last result.
type Stream interface {
	Send(audio []byte) error
	CloseSend() error
	Recv() (*types.Response, error)
	Close() error
}
